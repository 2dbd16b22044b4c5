package models

import (
	"time"

	"github.com/google/uuid"
)

// DateRange is the span of dates covered by a trip's days
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Trip groups day plans under a name that is unique per user (case-insensitive)
type Trip struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	DateRange *DateRange `json:"date_range,omitempty"`
	DayCount  int        `json:"day_count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
