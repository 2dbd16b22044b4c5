package database

import (
	"context"

	"github.com/benvon/tripflow/internal/models"
	"github.com/google/uuid"
)

// DayPlanRepositoryInterface defines the day plan persistence operations.
// This interface enables better testability by allowing mock implementations
type DayPlanRepositoryInterface interface {
	Load(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error)
	Create(ctx context.Context, day *models.DayPlan) error
	Save(ctx context.Context, day *models.DayPlan) error
	Delete(ctx context.Context, scope models.Scope, date string) error
	ListAll(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error)
}

// TripRepositoryInterface defines the trip persistence operations
type TripRepositoryInterface interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error)
	Rename(ctx context.Context, userID, tripID uuid.UUID, name string) error
	Delete(ctx context.Context, userID, tripID uuid.UUID) error
}

// UserRepositoryInterface defines the user persistence operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ DayPlanRepositoryInterface = (*DayPlanRepository)(nil)
	_ TripRepositoryInterface    = (*TripRepository)(nil)
	_ UserRepositoryInterface    = (*UserRepository)(nil)
)
