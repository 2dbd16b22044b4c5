package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/planner"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/request"
	"github.com/benvon/tripflow/internal/services/ai"
)

const tracerName = "github.com/benvon/tripflow/internal/services/itinerary"

// AnalysisCache stores AI analysis text per day. *cache.RedisCache satisfies it.
type AnalysisCache interface {
	planner.AnalysisInvalidator
	GetAnalysis(ctx context.Context, day *models.DayPlan) (string, bool, error)
	SetAnalysis(ctx context.Context, day *models.DayPlan, analysis string) error
	HydrateAnalysis(ctx context.Context, day *models.DayPlan) error
}

// CreateDayInput describes a new day
type CreateDayInput struct {
	Date      string
	StartTime string
	EndTime   string
}

// ActivityPatch is a partial update of an activity. Nil fields keep their current value.
type ActivityPatch struct {
	Name            *string
	Start           *string
	End             *string
	ExpectedCost    *float64
	ActualCost      *float64
	ClearActualCost bool
	Location        *string
	Coords          *models.Coords
	ClearCoords     bool
}

// Apply writes the patch onto a
func (p ActivityPatch) Apply(a *models.Activity) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Start != nil {
		a.Start = *p.Start
	}
	if p.End != nil {
		a.End = *p.End
	}
	if p.ExpectedCost != nil {
		a.ExpectedCost = models.Float64Ptr(*p.ExpectedCost)
	}
	switch {
	case p.ClearActualCost:
		a.ActualCost = nil
	case p.ActualCost != nil:
		a.ActualCost = models.Float64Ptr(*p.ActualCost)
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	switch {
	case p.ClearCoords:
		a.Coords = nil
	case p.Coords != nil:
		c := *p.Coords
		a.Coords = &c
	}
}

// Analysis is the AI review of a day
type Analysis struct {
	Date   string `json:"date"`
	Text   string `json:"analysis"`
	Cached bool   `json:"cached"`
}

// DayService orchestrates day plans for an explicit user/trip scope
type DayService struct {
	days     database.DayPlanRepositoryInterface
	trips    database.TripRepositoryInterface
	cache    AnalysisCache
	provider ai.Provider
	enqueuer queue.Enqueuer
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewDayService creates a day service. cache, provider and enqueuer may be nil.
func NewDayService(days database.DayPlanRepositoryInterface, trips database.TripRepositoryInterface, cache AnalysisCache, provider ai.Provider, enqueuer queue.Enqueuer, logger *zap.Logger) *DayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayService{
		days:     days,
		trips:    trips,
		cache:    cache,
		provider: provider,
		enqueuer: enqueuer,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// CreateDay adds an empty day to the scope
func (s *DayService) CreateDay(ctx context.Context, scope models.Scope, in CreateDayInput) (*models.DayPlan, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	day := &models.DayPlan{
		UserID:     scope.UserID,
		TripID:     scope.TripID,
		Date:       date,
		Activities: []models.Activity{},
	}
	if in.StartTime != "" || in.EndTime != "" {
		start, end, err := planner.NormalizeRange(in.StartTime, in.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		day.StartTime, day.EndTime = start, end
	}
	if err := s.checkTrip(ctx, scope); err != nil {
		return nil, err
	}
	if err := s.days.Create(ctx, day); err != nil {
		return nil, err
	}
	s.logger.Info("day_created",
		zap.String("scope", scope.Key()),
		zap.String("date", date),
	)
	return day, nil
}

// GetDay loads a day with its cached analysis
func (s *DayService) GetDay(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.HydrateAnalysis(ctx, day); err != nil {
			s.logger.Warn("analysis_cache_read_failed", zap.String("scope", scope.Key()), zap.String("date", date), zap.Error(err))
		}
	}
	return day, nil
}

// ListDays returns the scope's days ordered by date
func (s *DayService) ListDays(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error) {
	if err := s.checkTrip(ctx, scope); err != nil {
		return nil, err
	}
	return s.days.ListAll(ctx, scope)
}

// DeleteDay removes a day and its cached analysis
func (s *DayService) DeleteDay(ctx context.Context, scope models.Scope, date string) error {
	date, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := s.checkTrip(ctx, scope); err != nil {
		return err
	}
	if err := s.days.Delete(ctx, scope, date); err != nil {
		return err
	}
	s.forgetAnalysis(ctx, scope, date)
	return nil
}

// AddActivity validates and inserts an activity. slotStart selects the slot
// context; when empty the whole day is the context.
func (s *DayService) AddActivity(ctx context.Context, scope models.Scope, date string, activity models.Activity, slotStart string) (models.Activity, error) {
	store, err := s.store(ctx, scope, date)
	if err != nil {
		return models.Activity{}, err
	}
	var slot *models.HourSlot
	if slotStart != "" {
		if slot, err = planner.FindSlotByStart(store.Day(), slotStart); err != nil {
			return models.Activity{}, err
		}
	}
	return store.Insert(ctx, activity, slot)
}

// EditActivity applies patch to an activity through an edit session
func (s *DayService) EditActivity(ctx context.Context, scope models.Scope, date, id string, patch ActivityPatch) (models.Activity, error) {
	store, err := s.store(ctx, scope, date)
	if err != nil {
		return models.Activity{}, err
	}
	session, err := store.BeginEdit(id)
	if err != nil {
		return models.Activity{}, err
	}
	patch.Apply(&session.Draft)
	return store.CommitEdit(ctx, session)
}

// DeleteActivity removes an activity from a day
func (s *DayService) DeleteActivity(ctx context.Context, scope models.Scope, date, id string) error {
	store, err := s.store(ctx, scope, date)
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

// Reschedule changes a day's time range. Without confirm it only previews and
// returns planner.ErrConfirmationRequired alongside the preview.
func (s *DayService) Reschedule(ctx context.Context, scope models.Scope, date, start, end string, confirm bool) (planner.RescheduleResult, error) {
	store, err := s.store(ctx, scope, date)
	if err != nil {
		return planner.RescheduleResult{}, err
	}
	result, err := store.Reschedule(ctx, start, end, confirm)
	if err != nil {
		return result, err
	}
	s.logger.Info("day_rescheduled",
		zap.String("scope", scope.Key()),
		zap.String("date", date),
		zap.String("start_time", result.StartTime),
		zap.String("end_time", result.EndTime),
		zap.Int("dropped", len(result.Dropped)),
	)
	return result, nil
}

// Slots returns the slot view of a day
func (s *DayService) Slots(ctx context.Context, scope models.Scope, date string) ([]models.HourSlot, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	return planner.SlotView(day)
}

// Gaps returns the free intervals of a day
func (s *DayService) Gaps(ctx context.Context, scope models.Scope, date string) ([]models.Gap, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	return planner.FindGaps(day), nil
}

// Metrics returns the budget and time aggregates of a day
func (s *DayService) Metrics(ctx context.Context, scope models.Scope, date string) (models.DayMetrics, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return models.DayMetrics{}, err
	}
	return planner.ComputeMetrics(day.Activities), nil
}

// CachedAnalysis returns the cached analysis of a day, or ErrNoAnalysis
func (s *DayService) CachedAnalysis(ctx context.Context, scope models.Scope, date string) (*Analysis, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return nil, ErrNoAnalysis
	}
	text, ok, err := s.cache.GetAnalysis(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}
	if !ok {
		return nil, ErrNoAnalysis
	}
	return &Analysis{Date: day.Date, Text: text, Cached: true}, nil
}

// Analyze returns the day's AI analysis, asking the provider when nothing is cached
func (s *DayService) Analyze(ctx context.Context, scope models.Scope, date string) (*Analysis, error) {
	ctx, span := s.tracer.Start(ctx, "itinerary.analyze", trace.WithAttributes(
		attribute.String("day.scope", scope.Key()),
		attribute.String("day.date", date),
	))
	defer span.End()

	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		text, ok, err := s.cache.GetAnalysis(ctx, day)
		if err != nil {
			s.logger.Warn("analysis_cache_read_failed", zap.String("scope", scope.Key()), zap.String("date", day.Date), zap.Error(err))
		} else if ok {
			span.SetAttributes(attribute.Bool("analysis.cached", true))
			return &Analysis{Date: day.Date, Text: text, Cached: true}, nil
		}
	}

	if s.provider == nil {
		return nil, ErrAIUnavailable
	}

	start := time.Now()
	ctx = ai.WithRequestContext(ctx, request.IDFromContext(ctx), scope.UserID.String(), day.Date)
	text, err := s.provider.AnalyzeDay(ctx, ai.DayAnalysisRequest{
		Date:       day.Date,
		Activities: day.Activities,
		Metrics:    planner.ComputeMetrics(day.Activities),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.logger.Error("day_analysis_failed",
			zap.String("scope", scope.Key()),
			zap.String("date", day.Date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrAIFailed, err)
	}

	if s.cache != nil {
		s.cacheAnalysis(ctx, day, text)
	}
	s.logger.Info("day_analysis_completed",
		zap.String("scope", scope.Key()),
		zap.String("date", day.Date),
		zap.Int("activity_count", len(day.Activities)),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return &Analysis{Date: day.Date, Text: text}, nil
}

// cacheAnalysis stores text for the analyzed snapshot of day unless the day was edited
// while the provider was working
func (s *DayService) cacheAnalysis(ctx context.Context, analyzed *models.DayPlan, text string) {
	current, err := s.days.Load(ctx, analyzed.Scope(), analyzed.Date)
	if err != nil {
		s.logger.Warn("analysis_cache_write_skipped", zap.String("scope", analyzed.Scope().Key()), zap.String("date", analyzed.Date), zap.Error(err))
		return
	}
	if current.ContentVersion() != analyzed.ContentVersion() {
		s.logger.Info("analysis_outdated_not_cached", zap.String("scope", analyzed.Scope().Key()), zap.String("date", analyzed.Date))
		return
	}
	if err := s.cache.SetAnalysis(ctx, analyzed, text); err != nil {
		s.logger.Warn("analysis_cache_write_failed", zap.String("scope", analyzed.Scope().Key()), zap.String("date", analyzed.Date), zap.Error(err))
	}
}

// QueueAnalysis schedules an asynchronous analysis of a day
func (s *DayService) QueueAnalysis(ctx context.Context, scope models.Scope, date string) (*queue.Job, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	if s.enqueuer == nil {
		return nil, ErrQueueUnavailable
	}
	job := queue.NewDayAnalysisJob(scope, day.Date)
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue analysis: %w", err)
	}
	s.logger.Info("day_analysis_queued",
		zap.String("job_id", job.ID.String()),
		zap.String("scope", scope.Key()),
		zap.String("date", day.Date),
	)
	return job, nil
}

// Autofill asks the AI provider to fill the day's gaps and inserts what it proposes
func (s *DayService) Autofill(ctx context.Context, scope models.Scope, date, locationContext string) (planner.AutofillResult, error) {
	ctx, span := s.tracer.Start(ctx, "itinerary.autofill", trace.WithAttributes(
		attribute.String("day.scope", scope.Key()),
		attribute.String("day.date", date),
	))
	defer span.End()

	store, err := s.store(ctx, scope, date)
	if err != nil {
		return planner.AutofillResult{}, err
	}
	day := store.Day()
	gaps := planner.FindGaps(day)
	if len(gaps) == 0 {
		return planner.AutofillResult{Added: []models.Activity{}, Rejected: []planner.RejectedCandidate{}}, planner.ErrNothingAdded
	}
	if s.provider == nil {
		return planner.AutofillResult{}, ErrAIUnavailable
	}

	ctx = ai.WithRequestContext(ctx, request.IDFromContext(ctx), scope.UserID.String(), day.Date)
	candidates, err := s.provider.AutofillDay(ctx, ai.AutofillRequest{
		ExistingActivities: day.Activities,
		EmptySlots:         gaps,
		DayStart:           day.StartTime,
		DayEnd:             day.EndTime,
		LocationContext:    strings.TrimSpace(locationContext),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "autofill failed")
		s.logger.Error("day_autofill_failed",
			zap.String("scope", scope.Key()),
			zap.String("date", day.Date),
			zap.Error(err),
		)
		return planner.AutofillResult{}, fmt.Errorf("%w: %w", ErrAIFailed, err)
	}

	result, err := store.Autofill(ctx, candidates)
	span.SetAttributes(
		attribute.Int("autofill.candidates", len(candidates)),
		attribute.Int("autofill.added", len(result.Added)),
	)
	if err != nil {
		return result, err
	}
	s.logger.Info("day_autofill_completed",
		zap.String("scope", scope.Key()),
		zap.String("date", day.Date),
		zap.Int("candidates", len(candidates)),
		zap.Int("added", len(result.Added)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// load validates the date and scope and fetches the day
func (s *DayService) load(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.checkTrip(ctx, scope); err != nil {
		return nil, err
	}
	return s.days.Load(ctx, scope, date)
}

func (s *DayService) store(ctx context.Context, scope models.Scope, date string) (*planner.ActivityStore, error) {
	day, err := s.load(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	var invalidator planner.AnalysisInvalidator
	if s.cache != nil {
		invalidator = s.cache
	}
	return planner.NewActivityStore(day, s.days, invalidator), nil
}

// checkTrip verifies a trip scope belongs to the scope's user
func (s *DayService) checkTrip(ctx context.Context, scope models.Scope) error {
	if scope.TripID == nil {
		return nil
	}
	if _, err := s.trips.GetByID(ctx, scope.UserID, *scope.TripID); err != nil {
		return err
	}
	return nil
}

func (s *DayService) forgetAnalysis(ctx context.Context, scope models.Scope, date string) {
	if s.cache == nil {
		return
	}
	stub := &models.DayPlan{UserID: scope.UserID, TripID: scope.TripID, Date: date}
	if err := s.cache.InvalidateAnalysis(ctx, stub); err != nil {
		s.logger.Warn("analysis_cache_invalidate_failed", zap.String("scope", scope.Key()), zap.String("date", date), zap.Error(err))
	}
}

// ParseDate validates a YYYY-MM-DD calendar date
func ParseDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if _, err := time.Parse(models.PlanDateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}
	return date, nil
}

// IsAIError reports whether err came from the AI collaborator
func IsAIError(err error) bool {
	return errors.Is(err, ErrAIFailed)
}
