package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateDay is returned when a day already exists for the same scope and date
	ErrDuplicateDay = errors.New("day already exists for this date")
	// ErrDuplicateTripName is returned when the user already has a trip with the same name
	ErrDuplicateTripName = errors.New("trip name already exists")
)

// uniqueViolationCode is the Postgres SQLSTATE for unique_violation
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a unique violation, optionally on a specific constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != uniqueViolationCode {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
