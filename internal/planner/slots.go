package planner

import (
	"fmt"
	"sort"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

// SlotLength is the maximum length of a slot in minutes
const SlotLength = 60

// GenerateSlots partitions [dayStart, dayEnd) into contiguous slots of one hour,
// clamping the final slot to dayEnd.
func GenerateSlots(dayStart, dayEnd string) ([]models.HourSlot, error) {
	startMin, endMin, err := parseRange(dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	slots := make([]models.HourSlot, 0, (endMin-startMin+SlotLength-1)/SlotLength)
	for current := startMin; current < endMin; {
		next := current + SlotLength
		if next > endMin {
			next = endMin
		}
		start := timeutil.FromMinutes(current)
		end := timeutil.FromMinutes(next)
		slots = append(slots, models.HourSlot{
			Label:      timeutil.SlotLabel(start, end),
			Start:      start,
			End:        end,
			Activities: []models.Activity{},
		})
		current = next
	}
	return slots, nil
}

// SlotView derives the slot-grouped view of a day's activities.
// Days without a time range have no slots.
func SlotView(day *models.DayPlan) ([]models.HourSlot, error) {
	if !day.HasTimeRange() {
		return []models.HourSlot{}, nil
	}
	slots, err := GenerateSlots(day.StartTime, day.EndTime)
	if err != nil {
		return nil, err
	}
	for _, a := range day.Activities {
		if a.Start == "" {
			continue
		}
		idx := placementIndex(slots, a.Start, day.EndTime)
		if idx < 0 {
			continue
		}
		slots[idx].Activities = append(slots[idx].Activities, a.Clone())
	}
	for i := range slots {
		SortActivities(slots[i].Activities)
	}
	return slots, nil
}

// SlotFor returns the slot of day containing start, or nil when the day has no range
// or no slot contains it.
func SlotFor(day *models.DayPlan, start string) (*models.HourSlot, error) {
	if !day.HasTimeRange() || start == "" {
		return nil, nil
	}
	slots, err := GenerateSlots(day.StartTime, day.EndTime)
	if err != nil {
		return nil, err
	}
	idx := placementIndex(slots, start, day.EndTime)
	if idx < 0 {
		return nil, nil
	}
	return &slots[idx], nil
}

// placementIndex is the slot an activity starting at start is shown in, or -1.
// The slot rule admits a start equal to the slot end, so the closing minute of
// the day belongs to the last slot.
func placementIndex(slots []models.HourSlot, start, dayEnd string) int {
	if idx := slotIndex(slots, start); idx >= 0 {
		return idx
	}
	if start == dayEnd && len(slots) > 0 {
		return len(slots) - 1
	}
	return -1
}

// FindSlotByStart returns the derived slot of day that begins at start
func FindSlotByStart(day *models.DayPlan, start string) (*models.HourSlot, error) {
	norm, err := timeutil.Normalize(start)
	if err != nil {
		return nil, reject(ReasonInvalidTime)
	}
	slots, err := GenerateSlots(day.StartTime, day.EndTime)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].Start == norm {
			return &slots[i], nil
		}
	}
	return nil, reject(ReasonStartOutsideSlot)
}

// SortActivities orders activities ascending by start. Activities without a start
// keep their relative order at the end.
func SortActivities(activities []models.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := activities[i].Start, activities[j].Start
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return timeutil.Before(a, b)
	})
}

// slotIndex finds the slot with start <= t < end
func slotIndex(slots []models.HourSlot, t string) int {
	for i, s := range slots {
		if !timeutil.Before(t, s.Start) && timeutil.Before(t, s.End) {
			return i
		}
	}
	return -1
}

func parseRange(dayStart, dayEnd string) (int, int, error) {
	startMin, err := timeutil.ToMinutes(dayStart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start %q", ErrInvalidTimeRange, dayStart)
	}
	endMin, err := timeutil.ToMinutes(dayEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end %q", ErrInvalidTimeRange, dayEnd)
	}
	if startMin >= endMin {
		return 0, 0, fmt.Errorf("%w: %s is not before %s", ErrInvalidTimeRange, dayStart, dayEnd)
	}
	return startMin, endMin, nil
}

// NormalizeRange validates and zero-pads a day time range
func NormalizeRange(dayStart, dayEnd string) (string, string, error) {
	if _, _, err := parseRange(dayStart, dayEnd); err != nil {
		return "", "", err
	}
	start, _ := timeutil.Normalize(dayStart)
	end, _ := timeutil.Normalize(dayEnd)
	return start, end, nil
}
