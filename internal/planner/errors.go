package planner

import "errors"

// Rejection reasons reported by the validator
const (
	ReasonMissingName      = "missing name"
	ReasonMissingTimes     = "missing times"
	ReasonInvalidTime      = "invalid time"
	ReasonStartNotBefore   = "start not before end"
	ReasonStartOutsideSlot = "start outside slot range"
	ReasonInvalidCost      = "invalid cost"
)

var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTimeRange is returned when a day range is malformed or not ascending
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrActivityNotFound is returned when an activity id is not part of the day
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateActivity is returned when an AI activity clashes with an existing one
	ErrDuplicateActivity = errors.New("duplicate activity")
	// ErrIncompleteActivity is returned when an AI activity lacks name, start or end
	ErrIncompleteActivity = errors.New("incomplete activity")
	// ErrConfirmationRequired is returned when a destructive operation was not confirmed
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrStaleEdit is returned when the activity changed after the edit session began
	ErrStaleEdit = errors.New("activity changed since edit began")
	// ErrNothingAdded is returned when an autofill run inserted no activity
	ErrNothingAdded = errors.New("no activities added")
)

// ValidationError carries the human-readable reason an activity was rejected
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid activity: " + e.Reason
}

// Is lets errors.Is(err, ErrValidation) match any rejection
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func reject(reason string) error {
	return &ValidationError{Reason: reason}
}

// RejectionReason extracts the validator reason from err, or "" if err is not a rejection
func RejectionReason(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return ""
}
