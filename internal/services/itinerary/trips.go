package itinerary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
)

// MaxTripNameLength bounds trip names in characters
const MaxTripNameLength = 120

// TripService manages a user's trips
type TripService struct {
	trips  database.TripRepositoryInterface
	days   database.DayPlanRepositoryInterface
	cache  AnalysisCache
	logger *zap.Logger
}

// NewTripService creates a trip service. cache may be nil.
func NewTripService(trips database.TripRepositoryInterface, days database.DayPlanRepositoryInterface, cache AnalysisCache, logger *zap.Logger) *TripService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripService{trips: trips, days: days, cache: cache, logger: logger}
}

// CreateTrip creates a trip. Names are trimmed and unique per user regardless of case.
func (s *TripService) CreateTrip(ctx context.Context, userID uuid.UUID, name string) (*models.Trip, error) {
	name, err := normalizeTripName(name)
	if err != nil {
		return nil, err
	}
	trip := &models.Trip{UserID: userID, Name: name}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	s.logger.Info("trip_created", zap.String("trip_id", trip.ID.String()), zap.String("user_id", userID.String()))
	return trip, nil
}

// ListTrips returns the user's trips with their date ranges
func (s *TripService) ListTrips(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	return s.trips.ListByUser(ctx, userID)
}

// GetTrip returns one trip of the user
func (s *TripService) GetTrip(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error) {
	return s.trips.GetByID(ctx, userID, tripID)
}

// RenameTrip renames a trip and returns it
func (s *TripService) RenameTrip(ctx context.Context, userID, tripID uuid.UUID, name string) (*models.Trip, error) {
	name, err := normalizeTripName(name)
	if err != nil {
		return nil, err
	}
	if err := s.trips.Rename(ctx, userID, tripID, name); err != nil {
		return nil, err
	}
	return s.trips.GetByID(ctx, userID, tripID)
}

// DeleteTrip removes a trip together with its days and their cached analyses
func (s *TripService) DeleteTrip(ctx context.Context, userID, tripID uuid.UUID) error {
	scope := models.TripScope(userID, tripID)
	var days []*models.DayPlan
	if s.cache != nil {
		var err error
		if days, err = s.days.ListAll(ctx, scope); err != nil {
			s.logger.Warn("trip_days_list_failed", zap.String("trip_id", tripID.String()), zap.Error(err))
		}
	}

	if err := s.trips.Delete(ctx, userID, tripID); err != nil {
		return err
	}

	for _, day := range days {
		if err := s.cache.InvalidateAnalysis(ctx, day); err != nil {
			s.logger.Warn("analysis_cache_invalidate_failed", zap.String("scope", scope.Key()), zap.String("date", day.Date), zap.Error(err))
		}
	}
	s.logger.Info("trip_deleted",
		zap.String("trip_id", tripID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("day_count", len(days)),
	)
	return nil
}

func normalizeTripName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: trip name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxTripNameLength {
		return "", fmt.Errorf("%w: trip name exceeds %d characters", ErrInvalidInput, MaxTripNameLength)
	}
	return name, nil
}
