package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

func TestGenerateSlots_Coverage(t *testing.T) {
	t.Parallel()

	ranges := []struct {
		start string
		end   string
	}{
		{"09:00", "17:00"},
		{"08:30", "12:15"},
		{"00:00", "23:59"},
		{"10:00", "10:20"},
		{"6:05", "7:05"},
	}

	for _, r := range ranges {
		t.Run(r.start+"-"+r.end, func(t *testing.T) {
			t.Parallel()

			slots, err := GenerateSlots(r.start, r.end)
			if err != nil {
				t.Fatalf("GenerateSlots failed: %v", err)
			}
			if len(slots) == 0 {
				t.Fatal("Expected at least one slot")
			}

			wantStart, _ := timeutil.Normalize(r.start)
			wantEnd, _ := timeutil.Normalize(r.end)
			if slots[0].Start != wantStart {
				t.Errorf("First slot starts at %s, want %s", slots[0].Start, wantStart)
			}
			if slots[len(slots)-1].End != wantEnd {
				t.Errorf("Last slot ends at %s, want %s", slots[len(slots)-1].End, wantEnd)
			}

			for i, s := range slots {
				startMin, _ := timeutil.ToMinutes(s.Start)
				endMin, _ := timeutil.ToMinutes(s.End)
				if endMin <= startMin {
					t.Errorf("Slot %d is empty: %s-%s", i, s.Start, s.End)
				}
				if i < len(slots)-1 {
					if endMin-startMin != SlotLength {
						t.Errorf("Slot %d lasts %d minutes", i, endMin-startMin)
					}
					if s.End != slots[i+1].Start {
						t.Errorf("Slot %d ends at %s but next starts at %s", i, s.End, slots[i+1].Start)
					}
				}
				if s.Label != timeutil.SlotLabel(s.Start, s.End) {
					t.Errorf("Slot %d has label %q", i, s.Label)
				}
			}
		})
	}
}

func TestGenerateSlots_ClampsFinalSlot(t *testing.T) {
	t.Parallel()

	slots, err := GenerateSlots("08:30", "10:00")
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	want := []string{"8:30 AM - 9:30 AM", "9:30 AM - 10:00 AM"}
	if len(slots) != len(want) {
		t.Fatalf("Expected %d slots, got %d", len(want), len(slots))
	}
	for i, label := range want {
		if slots[i].Label != label {
			t.Errorf("Slot %d label = %q, want %q", i, slots[i].Label, label)
		}
	}
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	t.Parallel()

	first, err := GenerateSlots("07:00", "21:30")
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	second, err := GenerateSlots("07:00", "21:30")
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical slots for identical inputs")
	}
}

func TestGenerateSlots_InvalidRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "reversed", start: "17:00", end: "09:00"},
		{name: "empty range", start: "09:00", end: "09:00"},
		{name: "malformed start", start: "9am", end: "10:00"},
		{name: "missing end", start: "09:00", end: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := GenerateSlots(tt.start, tt.end); !errors.Is(err, ErrInvalidTimeRange) {
				t.Errorf("Expected ErrInvalidTimeRange, got %v", err)
			}
		})
	}
}

func TestSlotView(t *testing.T) {
	t.Parallel()

	day := newTestDay("09:00", "12:00",
		activity("a", "Breakfast", "09:15", "09:45", 10),
		activity("b", "Walk", "09:00", "09:30", 0),
		activity("c", "Museum", "10:30", "11:30", 20),
		activity("d", "Late", "12:00", "13:00", 5),
		activity("e", "Early", "07:00", "08:00", 5),
	)

	slots, err := SlotView(day)
	if err != nil {
		t.Fatalf("SlotView failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("Expected 3 slots, got %d", len(slots))
	}

	if got := starts(slots[0].Activities); !reflect.DeepEqual(got, []string{"09:00", "09:15"}) {
		t.Errorf("First slot activities = %v", got)
	}
	if got := starts(slots[1].Activities); !reflect.DeepEqual(got, []string{"10:30"}) {
		t.Errorf("Second slot activities = %v", got)
	}
	if got := starts(slots[2].Activities); !reflect.DeepEqual(got, []string{"12:00"}) {
		t.Errorf("Last slot should hold the activity starting at day end, got %v", got)
	}
}

func TestSlotView_NoRange(t *testing.T) {
	t.Parallel()

	day := newTestDay("", "", activity("a", "A", "09:00", "10:00", 1))
	slots, err := SlotView(day)
	if err != nil {
		t.Fatalf("SlotView failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("Expected no slots, got %d", len(slots))
	}
}

func TestFindSlotByStart(t *testing.T) {
	t.Parallel()

	day := newTestDay("09:00", "12:00")

	slot, err := FindSlotByStart(day, "10:00")
	if err != nil {
		t.Fatalf("FindSlotByStart failed: %v", err)
	}
	if slot.Start != "10:00" || slot.End != "11:00" {
		t.Errorf("Unexpected slot %s-%s", slot.Start, slot.End)
	}

	if _, err := FindSlotByStart(day, "10:30"); RejectionReason(err) != ReasonStartOutsideSlot {
		t.Errorf("Expected outside slot rejection, got %v", err)
	}
	if _, err := FindSlotByStart(day, "ten"); RejectionReason(err) != ReasonInvalidTime {
		t.Errorf("Expected invalid time rejection, got %v", err)
	}
}

func TestSortActivities(t *testing.T) {
	t.Parallel()

	activities := []models.Activity{
		{ID: "1", Start: "14:00"},
		{ID: "2", Start: ""},
		{ID: "3", Start: "09:00"},
		{ID: "4", Start: ""},
		{ID: "5", Start: "09:00"},
	}
	SortActivities(activities)

	var ids []string
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	want := []string{"3", "5", "1", "2", "4"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Sorted ids = %v, want %v", ids, want)
	}
}
