package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/middleware"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/services/itinerary"
)

// TripManager is the trip orchestration the handlers need. *itinerary.TripService satisfies it.
type TripManager interface {
	CreateTrip(ctx context.Context, userID uuid.UUID, name string) (*models.Trip, error)
	ListTrips(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error)
	GetTrip(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error)
	RenameTrip(ctx context.Context, userID, tripID uuid.UUID, name string) (*models.Trip, error)
	DeleteTrip(ctx context.Context, userID, tripID uuid.UUID) error
}

var _ TripManager = (*itinerary.TripService)(nil)

// TripHandler handles trip requests
type TripHandler struct {
	trips  TripManager
	logger *zap.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(trips TripManager, logger *zap.Logger) *TripHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripHandler{trips: trips, logger: logger}
}

// RegisterRoutes registers trip routes on the given router
// The router should already have the /trips prefix
func (h *TripHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTrips).Methods("GET")
	r.HandleFunc("", h.CreateTrip).Methods("POST")
	r.HandleFunc("/{tripID}", h.GetTrip).Methods("GET")
	r.HandleFunc("/{tripID}", h.RenameTrip).Methods("PATCH")
	r.HandleFunc("/{tripID}", h.DeleteTrip).Methods("DELETE")
}

// TripRequest represents a create or rename trip request.
// Trimming and the emptiness check happen in the trip service.
type TripRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// tripTarget resolves the user and trip id of a request
func (h *TripHandler) tripTarget(w http.ResponseWriter, r *http.Request) (*models.User, uuid.UUID, bool) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, uuid.Nil, false
	}
	tripID, err := uuid.Parse(mux.Vars(r)["tripID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return nil, uuid.Nil, false
	}
	return user, tripID, true
}

// ListTrips lists the user's trips with their date ranges
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	trips, err := h.trips.ListTrips(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if trips == nil {
		trips = []*models.Trip{}
	}
	respondJSON(w, http.StatusOK, trips)
}

// CreateTrip creates a trip
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	var req TripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.trips.CreateTrip(r.Context(), user.ID, req.Name)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, trip)
}

// GetTrip returns a single trip
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	user, tripID, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	trip, err := h.trips.GetTrip(r.Context(), user.ID, tripID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// RenameTrip renames a trip
func (h *TripHandler) RenameTrip(w http.ResponseWriter, r *http.Request) {
	user, tripID, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	var req TripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.trips.RenameTrip(r.Context(), user.ID, tripID, req.Name)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// DeleteTrip deletes a trip and its days
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	user, tripID, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	if err := h.trips.DeleteTrip(r.Context(), user.ID, tripID); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
