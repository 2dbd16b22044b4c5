package planner

import (
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

// Fixed bounds searched for free time
const (
	GapBoundStart = "00:00"
	GapBoundEnd   = "23:59"
)

// FindGaps returns the free intervals of day between 00:00 and 23:59
func FindGaps(day *models.DayPlan) []models.Gap {
	timed := make([]models.Activity, 0, len(day.Activities))
	for _, a := range day.Activities {
		if a.Start != "" && a.End != "" {
			timed = append(timed, a)
		}
	}
	SortActivities(timed)

	gaps := []models.Gap{}
	current := GapBoundStart
	for _, a := range timed {
		// Overlapping entries are merged into the busy span
		if timeutil.Before(a.Start, current) && timeutil.Before(current, a.End) {
			current = a.End
			continue
		}
		if timeutil.Before(current, a.Start) {
			gaps = append(gaps, models.Gap{Start: current, End: a.Start})
		}
		if timeutil.Before(current, a.End) {
			current = a.End
		}
	}
	if timeutil.Before(current, GapBoundEnd) {
		gaps = append(gaps, models.Gap{Start: current, End: GapBoundEnd})
	}
	return gaps
}
