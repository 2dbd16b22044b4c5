package database

import (
	"context"
	"fmt"
)

// Constraint names referenced when mapping unique violations
const (
	dayPlanScopeDateConstraint = "day_plans_scope_date_key"
	tripUserNameConstraint     = "trips_user_lower_name_key"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		provider_id TEXT UNIQUE,
		name TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + tripUserNameConstraint + ` ON trips (user_id, LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS day_plans (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		trip_id UUID REFERENCES trips(id) ON DELETE CASCADE,
		scope_key TEXT NOT NULL,
		plan_date DATE NOT NULL,
		start_time TEXT,
		end_time TEXT,
		activities JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ` + dayPlanScopeDateConstraint + ` UNIQUE (scope_key, plan_date)
	)`,
	`CREATE INDEX IF NOT EXISTS day_plans_trip_id_idx ON day_plans (trip_id)`,
}

// Migrate creates the schema if it does not exist. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
