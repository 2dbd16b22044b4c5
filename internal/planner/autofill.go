package planner

import (
	"context"
	"errors"

	"github.com/benvon/tripflow/internal/models"
)

// MaxAutofillActivities caps how many AI proposals one autofill run considers
const MaxAutofillActivities = 4

// RejectedCandidate is an AI proposal that was not inserted
type RejectedCandidate struct {
	Candidate models.AICandidate `json:"candidate"`
	Reason    string             `json:"reason"`
}

// AutofillResult reports what an autofill run did
type AutofillResult struct {
	Added    []models.Activity   `json:"added"`
	Rejected []RejectedCandidate `json:"rejected"`
}

// Autofill inserts up to MaxAutofillActivities AI proposals through the AI path.
// Incomplete and duplicate proposals are skipped. The day is persisted (and its
// analysis invalidated) once, and only when at least one activity was added.
func (s *ActivityStore) Autofill(ctx context.Context, candidates []models.AICandidate) (AutofillResult, error) {
	if len(candidates) > MaxAutofillActivities {
		candidates = candidates[:MaxAutofillActivities]
	}

	result := AutofillResult{
		Added:    []models.Activity{},
		Rejected: []RejectedCandidate{},
	}
	next := s.day.Clone()
	for _, c := range candidates {
		if !c.Complete() {
			result.Rejected = append(result.Rejected, RejectedCandidate{Candidate: c, Reason: ErrIncompleteActivity.Error()})
			continue
		}
		activity, err := appendAICandidate(next, c)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, ErrDuplicateActivity) {
				reason = ErrDuplicateActivity.Error()
			}
			result.Rejected = append(result.Rejected, RejectedCandidate{Candidate: c, Reason: reason})
			continue
		}
		result.Added = append(result.Added, activity.Clone())
	}

	if len(result.Added) == 0 {
		return result, ErrNothingAdded
	}
	if err := s.commit(ctx, next); err != nil {
		return AutofillResult{}, err
	}
	return result, nil
}
