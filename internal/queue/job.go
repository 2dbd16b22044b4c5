package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tripflow/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeDayAnalysis asks a worker to run the AI analysis of one day
	JobTypeDayAnalysis JobType = "day_analysis"
)

// DefaultMaxRetries is how many times a failed job is re-enqueued
const DefaultMaxRetries = 3

// ErrInvalidJob is returned when a job lacks the fields its type needs
var ErrInvalidJob = errors.New("invalid job")

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	TripID     *uuid.UUID     `json:"trip_id,omitempty"`
	Date       string         `json:"date,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // nil = no expiration
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job for userID
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

// NewDayAnalysisJob creates a job that analyzes the day of scope on date
func NewDayAnalysisJob(scope models.Scope, date string) *Job {
	job := NewJob(JobTypeDayAnalysis, scope.UserID)
	if scope.TripID != nil {
		tripID := *scope.TripID
		job.TripID = &tripID
	}
	job.Date = date
	return job
}

// Scope returns the day scope the job targets
func (j *Job) Scope() models.Scope {
	return models.Scope{UserID: j.UserID, TripID: j.TripID}
}

// Validate checks the job carries what its type requires
func (j *Job) Validate() error {
	if j.UserID == uuid.Nil {
		return fmt.Errorf("%w: missing user id", ErrInvalidJob)
	}
	switch j.Type {
	case JobTypeDayAnalysis:
		if _, err := time.Parse(models.PlanDateLayout, j.Date); err != nil {
			return fmt.Errorf("%w: bad date %q", ErrInvalidJob, j.Date)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidJob, j.Type)
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
