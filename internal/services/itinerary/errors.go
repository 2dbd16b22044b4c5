package itinerary

import "errors"

var (
	// ErrInvalidInput is returned for malformed dates, ranges and names
	ErrInvalidInput = errors.New("invalid input")
	// ErrAIUnavailable is returned when no AI provider is configured
	ErrAIUnavailable = errors.New("AI provider not configured")
	// ErrAIFailed wraps every failure of the AI collaborator
	ErrAIFailed = errors.New("AI provider request failed")
	// ErrQueueUnavailable is returned when asynchronous analysis has no queue
	ErrQueueUnavailable = errors.New("job queue not configured")
	// ErrNoAnalysis is returned when a day has no cached analysis
	ErrNoAnalysis = errors.New("no analysis for day")
)
