package planner

import (
	"strings"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
	"github.com/google/uuid"
)

// Validate checks a candidate activity and returns the normalized activity to store.
// slot is the slot the activity is being placed in; nil means the day itself is the context.
// Rules are applied in order and the first failure is returned.
func Validate(candidate models.Activity, slot *models.HourSlot, day *models.DayPlan) (models.Activity, error) {
	a := candidate.Clone()
	a.Name = strings.TrimSpace(a.Name)
	a.Location = strings.TrimSpace(a.Location)

	if a.Name == "" {
		return models.Activity{}, reject(ReasonMissingName)
	}

	if strings.TrimSpace(a.Start) == "" || strings.TrimSpace(a.End) == "" {
		return models.Activity{}, reject(ReasonMissingTimes)
	}
	start, err := timeutil.Normalize(a.Start)
	if err != nil {
		return models.Activity{}, reject(ReasonInvalidTime)
	}
	end, err := timeutil.Normalize(a.End)
	if err != nil {
		return models.Activity{}, reject(ReasonInvalidTime)
	}
	a.Start, a.End = start, end

	if !timeutil.Before(a.Start, a.End) {
		return models.Activity{}, reject(ReasonStartNotBefore)
	}

	// Only start is constrained; an activity may run past its slot
	switch {
	case slot != nil:
		if timeutil.Before(a.Start, slot.Start) || timeutil.Before(slot.End, a.Start) {
			return models.Activity{}, reject(ReasonStartOutsideSlot)
		}
	case day != nil && day.HasTimeRange():
		if timeutil.Before(a.Start, day.StartTime) || !timeutil.Before(a.Start, day.EndTime) {
			return models.Activity{}, reject(ReasonStartOutsideSlot)
		}
	}

	if a.ExpectedCost == nil || *a.ExpectedCost < 0 {
		return models.Activity{}, reject(ReasonInvalidCost)
	}
	if a.ActualCost != nil && *a.ActualCost < 0 {
		return models.Activity{}, reject(ReasonInvalidCost)
	}

	if a.ID == "" {
		a.ID = NewActivityID()
	}
	if a.Source == "" {
		a.Source = models.ActivitySourceUser
	}
	return a, nil
}

// NewActivityID returns a fresh collision-resistant activity id
func NewActivityID() string {
	return uuid.NewString()
}
