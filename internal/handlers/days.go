package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/middleware"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/planner"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/validation"
)

// DayPlanner is the day orchestration the handlers need. *itinerary.DayService satisfies it.
type DayPlanner interface {
	CreateDay(ctx context.Context, scope models.Scope, in itinerary.CreateDayInput) (*models.DayPlan, error)
	GetDay(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error)
	ListDays(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error)
	DeleteDay(ctx context.Context, scope models.Scope, date string) error
	AddActivity(ctx context.Context, scope models.Scope, date string, activity models.Activity, slotStart string) (models.Activity, error)
	EditActivity(ctx context.Context, scope models.Scope, date, id string, patch itinerary.ActivityPatch) (models.Activity, error)
	DeleteActivity(ctx context.Context, scope models.Scope, date, id string) error
	Reschedule(ctx context.Context, scope models.Scope, date, start, end string, confirm bool) (planner.RescheduleResult, error)
	Slots(ctx context.Context, scope models.Scope, date string) ([]models.HourSlot, error)
	Gaps(ctx context.Context, scope models.Scope, date string) ([]models.Gap, error)
	Metrics(ctx context.Context, scope models.Scope, date string) (models.DayMetrics, error)
	CachedAnalysis(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error)
	Analyze(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error)
	QueueAnalysis(ctx context.Context, scope models.Scope, date string) (*queue.Job, error)
	Autofill(ctx context.Context, scope models.Scope, date, locationContext string) (planner.AutofillResult, error)
}

var _ DayPlanner = (*itinerary.DayService)(nil)

// DayHandler handles day plan and activity requests
type DayHandler struct {
	days   DayPlanner
	logger *zap.Logger
}

// NewDayHandler creates a new day handler
func NewDayHandler(days DayPlanner, logger *zap.Logger) *DayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayHandler{days: days, logger: logger}
}

// RegisterRoutes registers day routes for standalone days and for trip days.
// The router should be the protected /api/v1 router.
func (h *DayHandler) RegisterRoutes(r *mux.Router) {
	h.registerScoped(r.PathPrefix("/days").Subrouter())
	h.registerScoped(r.PathPrefix("/trips/{tripID}/days").Subrouter())
}

// RegisterAIRoutes registers the routes that call the AI provider. They are
// kept apart so the server can put a stricter rate limit in front of them.
func (h *DayHandler) RegisterAIRoutes(r *mux.Router) {
	for _, prefix := range []string{"/days", "/trips/{tripID}/days"} {
		sub := r.PathPrefix(prefix).Subrouter()
		sub.HandleFunc("/{date}/analysis", h.Analyze).Methods("POST")
		sub.HandleFunc("/{date}/autofill", h.Autofill).Methods("POST")
	}
}

func (h *DayHandler) registerScoped(r *mux.Router) {
	r.HandleFunc("", h.ListDays).Methods("GET")
	r.HandleFunc("", h.CreateDay).Methods("POST")
	r.HandleFunc("/{date}", h.GetDay).Methods("GET")
	r.HandleFunc("/{date}", h.DeleteDay).Methods("DELETE")
	r.HandleFunc("/{date}/slots", h.GetSlots).Methods("GET")
	r.HandleFunc("/{date}/time-range", h.Reschedule).Methods("PUT")
	r.HandleFunc("/{date}/activities", h.AddActivity).Methods("POST")
	r.HandleFunc("/{date}/activities/{activityID}", h.EditActivity).Methods("PATCH")
	r.HandleFunc("/{date}/activities/{activityID}", h.DeleteActivity).Methods("DELETE")
	r.HandleFunc("/{date}/gaps", h.GetGaps).Methods("GET")
	r.HandleFunc("/{date}/metrics", h.GetMetrics).Methods("GET")
	r.HandleFunc("/{date}/analysis", h.GetAnalysis).Methods("GET")
}

const (
	// MaxActivityNameLength is the maximum length for an activity name
	MaxActivityNameLength = 200
	// MaxLocationLength is the maximum length for a location or location context
	MaxLocationLength = 500
)

// CreateDayRequest represents a create day request
type CreateDayRequest struct {
	Date      string `json:"date" validate:"required,plan_date"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,hhmm"`
}

// RescheduleRequest represents a change of a day's time range
type RescheduleRequest struct {
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	Confirm   bool   `json:"confirm"`
}

// ActivityRequest represents a new activity. Time and name checks are left to
// the planner so clients get its rejection reasons.
type ActivityRequest struct {
	Name         string         `json:"name" validate:"max=200"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	ExpectedCost *float64       `json:"expected_cost"`
	ActualCost   *float64       `json:"actual_cost"`
	Location     string         `json:"location" validate:"max=500"`
	Coords       *models.Coords `json:"coords"`
	SlotStart    string         `json:"slot_start,omitempty" validate:"omitempty,hhmm"`
}

// PatchActivityRequest represents a partial activity update
type PatchActivityRequest struct {
	Name            *string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Start           *string        `json:"start,omitempty"`
	End             *string        `json:"end,omitempty"`
	ExpectedCost    *float64       `json:"expected_cost,omitempty"`
	ActualCost      *float64       `json:"actual_cost,omitempty"`
	ClearActualCost bool           `json:"clear_actual_cost,omitempty"`
	Location        *string        `json:"location,omitempty" validate:"omitempty,max=500"`
	Coords          *models.Coords `json:"coords,omitempty"`
	ClearCoords     bool           `json:"clear_coords,omitempty"`
}

// AutofillRequest represents an autofill request. The body is optional.
type AutofillRequest struct {
	LocationContext string `json:"location_context" validate:"max=500"`
}

// QueuedAnalysisResponse is returned when an analysis was queued
type QueuedAnalysisResponse struct {
	JobID  string `json:"job_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// scope resolves the user and optional trip a request is addressed to.
// It answers the request itself and returns false when it cannot.
func (h *DayHandler) scope(w http.ResponseWriter, r *http.Request) (models.Scope, bool) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return models.Scope{}, false
	}
	raw, ok := mux.Vars(r)["tripID"]
	if !ok {
		return models.UserScope(user.ID), true
	}
	tripID, err := uuid.Parse(raw)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return models.Scope{}, false
	}
	return models.TripScope(user.ID, tripID), true
}

// ListDays lists the days of the scope
func (h *DayHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	days, err := h.days.ListDays(r.Context(), scope)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if days == nil {
		days = []*models.DayPlan{}
	}
	respondJSON(w, http.StatusOK, days)
}

// CreateDay creates a day in the scope
func (h *DayHandler) CreateDay(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req CreateDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, err := h.days.CreateDay(r.Context(), scope, itinerary.CreateDayInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, day)
}

// GetDay returns a day with its activities and cached analysis
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	day, err := h.days.GetDay(r.Context(), scope, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, day)
}

// DeleteDay deletes a day
func (h *DayHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.days.DeleteDay(r.Context(), scope, mux.Vars(r)["date"]); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSlots returns the day's hour slots with their activities
func (h *DayHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	slots, err := h.days.Slots(r.Context(), scope, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if slots == nil {
		slots = []models.HourSlot{}
	}
	respondJSON(w, http.StatusOK, slots)
}

// Reschedule changes a day's time range. Without confirmation it answers 409
// with the preview of kept and dropped activities.
func (h *DayHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	confirm := req.Confirm
	if q := r.URL.Query().Get("confirm"); q != "" {
		if parsed, err := strconv.ParseBool(q); err == nil {
			confirm = confirm || parsed
		}
	}

	result, err := h.days.Reschedule(r.Context(), scope, mux.Vars(r)["date"], req.StartTime, req.EndTime, confirm)
	if errors.Is(err, planner.ErrConfirmationRequired) {
		respondJSONErrorWithData(w, http.StatusConflict, "Conflict",
			strconv.Itoa(len(result.Dropped))+" activities fall outside the new range, resend with confirm to apply", result)
		return
	}
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// AddActivity adds a user activity to a day
func (h *DayHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req ActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	activity := models.Activity{
		Name:         validation.SanitizeText(req.Name),
		Start:        req.Start,
		End:          req.End,
		ExpectedCost: req.ExpectedCost,
		ActualCost:   req.ActualCost,
		Location:     validation.SanitizeText(req.Location),
		Coords:       req.Coords,
		Source:       models.ActivitySourceUser,
	}
	saved, err := h.days.AddActivity(r.Context(), scope, mux.Vars(r)["date"], activity, req.SlotStart)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// EditActivity applies a partial update to an activity
func (h *DayHandler) EditActivity(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req PatchActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := itinerary.ActivityPatch{
		Start:           req.Start,
		End:             req.End,
		ExpectedCost:    req.ExpectedCost,
		ActualCost:      req.ActualCost,
		ClearActualCost: req.ClearActualCost,
		Coords:          req.Coords,
		ClearCoords:     req.ClearCoords,
	}
	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		patch.Name = &name
	}
	if req.Location != nil {
		location := validation.SanitizeText(*req.Location)
		patch.Location = &location
	}

	vars := mux.Vars(r)
	saved, err := h.days.EditActivity(r.Context(), scope, vars["date"], vars["activityID"], patch)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// DeleteActivity removes an activity from a day
func (h *DayHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.days.DeleteActivity(r.Context(), scope, vars["date"], vars["activityID"]); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGaps returns the free intervals of a day
func (h *DayHandler) GetGaps(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	gaps, err := h.days.Gaps(r.Context(), scope, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if gaps == nil {
		gaps = []models.Gap{}
	}
	respondJSON(w, http.StatusOK, gaps)
}

// GetMetrics returns the budget and time metrics of a day
func (h *DayHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	metrics, err := h.days.Metrics(r.Context(), scope, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetAnalysis returns the cached AI analysis of a day
func (h *DayHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	analysis, err := h.days.CachedAnalysis(r.Context(), scope, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// Analyze runs the AI analysis of a day, or queues it with ?async=true
func (h *DayHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	date := mux.Vars(r)["date"]

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		job, err := h.days.QueueAnalysis(r.Context(), scope, date)
		if err != nil {
			respondServiceError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusAccepted, QueuedAnalysisResponse{
			JobID:  job.ID.String(),
			Date:   job.Date,
			Status: "queued",
		})
		return
	}

	analysis, err := h.days.Analyze(r.Context(), scope, date)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// Autofill asks the AI provider to fill a day's gaps
func (h *DayHandler) Autofill(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req AutofillRequest
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	result, err := h.days.Autofill(r.Context(), scope, mux.Vars(r)["date"], validation.SanitizeText(req.LocationContext))
	if errors.Is(err, planner.ErrNothingAdded) {
		respondJSONErrorWithData(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "No activities could be added", result)
		return
	}
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
