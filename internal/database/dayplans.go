package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tripflow/internal/models"
	"github.com/google/uuid"
)

const dayPlanColumns = `id, user_id, trip_id, to_char(plan_date, 'YYYY-MM-DD'), start_time, end_time, activities, created_at, updated_at`

// DayPlanRepository handles day plan database operations
type DayPlanRepository struct {
	db *DB
}

// NewDayPlanRepository creates a new day plan repository
func NewDayPlanRepository(db *DB) *DayPlanRepository {
	return &DayPlanRepository{db: db}
}

// Load retrieves the day of scope on date
func (r *DayPlanRepository) Load(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error) {
	query := `SELECT ` + dayPlanColumns + ` FROM day_plans WHERE scope_key = $1 AND plan_date = $2::date`

	day, err := scanDayPlan(r.db.QueryRowContext(ctx, query, scope.Key(), date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("day %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load day: %w", err)
	}
	return day, nil
}

// Create inserts a new day. A second day for the same scope and date is rejected with ErrDuplicateDay.
func (r *DayPlanRepository) Create(ctx context.Context, day *models.DayPlan) error {
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	activities, err := encodeActivities(day.Activities)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO day_plans (id, user_id, trip_id, scope_key, plan_date, start_time, end_time, activities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $9)
		RETURNING created_at, updated_at
	`
	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		day.ID,
		day.UserID,
		day.TripID,
		day.Scope().Key(),
		day.Date,
		nullString(day.StartTime),
		nullString(day.EndTime),
		activities,
		now,
	).Scan(&day.CreatedAt, &day.UpdatedAt)
	if isUniqueViolation(err, dayPlanScopeDateConstraint) {
		return fmt.Errorf("day %s: %w", day.Date, ErrDuplicateDay)
	}
	if err != nil {
		return fmt.Errorf("failed to create day: %w", err)
	}
	return nil
}

// Save writes the day's time range and activities, creating the row if needed
func (r *DayPlanRepository) Save(ctx context.Context, day *models.DayPlan) error {
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	activities, err := encodeActivities(day.Activities)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO day_plans (id, user_id, trip_id, scope_key, plan_date, start_time, end_time, activities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $9)
		ON CONFLICT (scope_key, plan_date) DO UPDATE
		SET start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			activities = EXCLUDED.activities,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		day.ID,
		day.UserID,
		day.TripID,
		day.Scope().Key(),
		day.Date,
		nullString(day.StartTime),
		nullString(day.EndTime),
		activities,
		now,
	).Scan(&day.ID, &day.CreatedAt, &day.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save day: %w", err)
	}
	return nil
}

// Delete removes the day of scope on date
func (r *DayPlanRepository) Delete(ctx context.Context, scope models.Scope, date string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM day_plans WHERE scope_key = $1 AND plan_date = $2::date`,
		scope.Key(), date,
	)
	if err != nil {
		return fmt.Errorf("failed to delete day: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("day %s: %w", date, ErrNotFound)
	}
	return nil
}

// ListAll returns every day of scope ordered by date
func (r *DayPlanRepository) ListAll(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error) {
	query := `SELECT ` + dayPlanColumns + ` FROM day_plans WHERE scope_key = $1 ORDER BY plan_date ASC`

	rows, err := r.db.QueryContext(ctx, query, scope.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	defer func() { _ = rows.Close() }()

	days := []*models.DayPlan{}
	for rows.Next() {
		day, err := scanDayPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate days: %w", err)
	}
	return days, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDayPlan(row rowScanner) (*models.DayPlan, error) {
	day := &models.DayPlan{}
	var tripID uuid.NullUUID
	var startTime, endTime sql.NullString
	var activitiesJSON []byte

	if err := row.Scan(
		&day.ID,
		&day.UserID,
		&tripID,
		&day.Date,
		&startTime,
		&endTime,
		&activitiesJSON,
		&day.CreatedAt,
		&day.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if tripID.Valid {
		id := tripID.UUID
		day.TripID = &id
	}
	day.StartTime = startTime.String
	day.EndTime = endTime.String

	activities, err := decodeActivities(activitiesJSON)
	if err != nil {
		return nil, err
	}
	day.Activities = activities
	return day, nil
}

// encodeActivities renders the activity list as JSONB, never as null
func encodeActivities(activities []models.Activity) ([]byte, error) {
	if activities == nil {
		activities = []models.Activity{}
	}
	data, err := json.Marshal(activities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activities: %w", err)
	}
	return data, nil
}

func decodeActivities(data []byte) ([]models.Activity, error) {
	activities := []models.Activity{}
	if len(data) == 0 {
		return activities, nil
	}
	if err := json.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
