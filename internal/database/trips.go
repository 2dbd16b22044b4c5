package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tripflow/internal/models"
	"github.com/google/uuid"
)

// tripSummaryQuery selects trips with the date range derived from their days
const tripSummaryQuery = `
	SELECT t.id, t.user_id, t.name, t.created_at, t.updated_at,
		to_char(MIN(d.plan_date), 'YYYY-MM-DD'),
		to_char(MAX(d.plan_date), 'YYYY-MM-DD'),
		COUNT(d.id)
	FROM trips t
	LEFT JOIN day_plans d ON d.trip_id = t.id
`

// TripRepository handles trip database operations
type TripRepository struct {
	db *DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create inserts a new trip. Names are unique per user regardless of case.
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	query := `
		INSERT INTO trips (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, trip.ID, trip.UserID, trip.Name, time.Now()).
		Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if isUniqueViolation(err, tripUserNameConstraint) {
		return fmt.Errorf("trip %q: %w", trip.Name, ErrDuplicateTripName)
	}
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip owned by userID
func (r *TripRepository) GetByID(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error) {
	query := tripSummaryQuery + ` WHERE t.user_id = $1 AND t.id = $2 GROUP BY t.id`

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, userID, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", tripID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListByUser returns the user's trips, oldest first, each with its derived date range
func (r *TripRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	query := tripSummaryQuery + ` WHERE t.user_id = $1 GROUP BY t.id ORDER BY t.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trips := []*models.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}
	return trips, nil
}

// Rename changes a trip's name, keeping names unique per user
func (r *TripRepository) Rename(ctx context.Context, userID, tripID uuid.UUID, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE trips SET name = $3, updated_at = $4 WHERE user_id = $1 AND id = $2`,
		userID, tripID, name, time.Now(),
	)
	if isUniqueViolation(err, tripUserNameConstraint) {
		return fmt.Errorf("trip %q: %w", name, ErrDuplicateTripName)
	}
	if err != nil {
		return fmt.Errorf("failed to rename trip: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trip %s: %w", tripID, ErrNotFound)
	}
	return nil
}

// Delete removes a trip and all of its days in one transaction
func (r *TripRepository) Delete(ctx context.Context, userID, tripID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM day_plans WHERE user_id = $1 AND trip_id = $2`,
		userID, tripID,
	); err != nil {
		return fmt.Errorf("failed to delete trip days: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM trips WHERE user_id = $1 AND id = $2`, userID, tripID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trip %s: %w", tripID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trip deletion: %w", err)
	}
	return nil
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	trip := &models.Trip{}
	var minDate, maxDate sql.NullString
	if err := row.Scan(
		&trip.ID,
		&trip.UserID,
		&trip.Name,
		&trip.CreatedAt,
		&trip.UpdatedAt,
		&minDate,
		&maxDate,
		&trip.DayCount,
	); err != nil {
		return nil, err
	}
	trip.DateRange = dateRangeFrom(minDate, maxDate)
	return trip, nil
}

// dateRangeFrom builds a trip's date range; trips without days have none
func dateRangeFrom(minDate, maxDate sql.NullString) *models.DateRange {
	if !minDate.Valid || !maxDate.Valid {
		return nil
	}
	return &models.DateRange{Start: minDate.String, End: maxDate.String}
}
