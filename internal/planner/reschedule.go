package planner

import (
	"context"

	"github.com/benvon/tripflow/internal/models"
)

// RescheduleResult describes a day after its time range changes
type RescheduleResult struct {
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Slots     []models.HourSlot `json:"slots"`
	Kept      []models.Activity `json:"kept"`
	Dropped   []models.Activity `json:"dropped"`
}

// PreviewReschedule computes the outcome of moving day to [newStart, newEnd)
// without changing anything. Activities are placed the way SlotView places them,
// and those whose start falls in no new slot are reported as dropped.
func PreviewReschedule(day *models.DayPlan, newStart, newEnd string) (RescheduleResult, error) {
	start, end, err := NormalizeRange(newStart, newEnd)
	if err != nil {
		return RescheduleResult{}, err
	}
	slots, err := GenerateSlots(start, end)
	if err != nil {
		return RescheduleResult{}, err
	}

	result := RescheduleResult{
		StartTime: start,
		EndTime:   end,
		Kept:      []models.Activity{},
		Dropped:   []models.Activity{},
	}
	for _, a := range day.Activities {
		idx := -1
		if a.Start != "" {
			idx = placementIndex(slots, a.Start, end)
		}
		if idx < 0 {
			result.Dropped = append(result.Dropped, a.Clone())
			continue
		}
		slots[idx].Activities = append(slots[idx].Activities, a.Clone())
		result.Kept = append(result.Kept, a.Clone())
	}
	for i := range slots {
		SortActivities(slots[i].Activities)
	}
	SortActivities(result.Kept)
	result.Slots = slots
	return result, nil
}

// Reschedule moves the day to a new time range, re-homing activities into the new
// slots. Activities that no longer fit are removed and returned in Dropped.
// The change is destructive, so it is refused unless confirmed.
func (s *ActivityStore) Reschedule(ctx context.Context, newStart, newEnd string, confirmed bool) (RescheduleResult, error) {
	result, err := PreviewReschedule(s.day, newStart, newEnd)
	if err != nil {
		return RescheduleResult{}, err
	}
	if !confirmed {
		return result, ErrConfirmationRequired
	}

	next := s.day.Clone()
	next.StartTime = result.StartTime
	next.EndTime = result.EndTime
	next.Activities = models.CloneActivities(result.Kept)
	if err := s.commit(ctx, next); err != nil {
		return RescheduleResult{}, err
	}
	return result, nil
}
