package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/planner"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/timeutil"
)

// Itinerary is the YAML form of one day plan
type Itinerary struct {
	Date       string            `yaml:"date"`
	StartTime  string            `yaml:"start_time,omitempty"`
	EndTime    string            `yaml:"end_time,omitempty"`
	Activities []models.Activity `yaml:"activities"`
}

// MarshalItinerary renders a day as YAML. Activity ids are dropped so the file can be imported elsewhere.
func MarshalItinerary(day *models.DayPlan) ([]byte, error) {
	it := Itinerary{
		Date:       day.Date,
		StartTime:  day.StartTime,
		EndTime:    day.EndTime,
		Activities: models.CloneActivities(day.Activities),
	}
	if it.Activities == nil {
		it.Activities = []models.Activity{}
	}
	for i := range it.Activities {
		it.Activities[i].ID = ""
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(it); err != nil {
		return nil, fmt.Errorf("failed to encode itinerary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode itinerary: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseItinerary decodes a YAML itinerary, rejecting unknown keys
func ParseItinerary(r io.Reader) (*Itinerary, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var it Itinerary
	if err := dec.Decode(&it); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("itinerary file is empty")
		}
		return nil, fmt.Errorf("failed to parse itinerary: %w", err)
	}
	if it.Date == "" {
		return nil, errors.New("itinerary has no date")
	}
	return &it, nil
}

// DayImporter is the part of the day service an import needs
type DayImporter interface {
	CreateDay(ctx context.Context, scope models.Scope, in itinerary.CreateDayInput) (*models.DayPlan, error)
	DeleteDay(ctx context.Context, scope models.Scope, date string) error
	AddActivity(ctx context.Context, scope models.Scope, date string, activity models.Activity, slotStart string) (models.Activity, error)
}

var _ DayImporter = (*itinerary.DayService)(nil)

// ImportResult reports how an itinerary was applied
type ImportResult struct {
	Date     string
	Added    int
	Rejected []string
}

// ImportItinerary creates the day and inserts every activity through the validator.
// Rejected activities are reported, not fatal. With replace an existing day is deleted first.
func ImportItinerary(ctx context.Context, days DayImporter, scope models.Scope, it *Itinerary, replace bool) (*ImportResult, error) {
	if replace {
		if err := days.DeleteDay(ctx, scope, it.Date); err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to delete existing day: %w", err)
		}
	}

	day, err := days.CreateDay(ctx, scope, itinerary.CreateDayInput{
		Date:      it.Date,
		StartTime: it.StartTime,
		EndTime:   it.EndTime,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateDay) {
			return nil, fmt.Errorf("day %s already exists, use --replace to overwrite it: %w", it.Date, err)
		}
		return nil, fmt.Errorf("failed to create day: %w", err)
	}

	result := &ImportResult{Date: day.Date}
	for i, a := range it.Activities {
		a.ID = ""
		if a.Source != models.ActivitySourceAI {
			a.Source = models.ActivitySourceUser
		}
		if _, err := days.AddActivity(ctx, scope, day.Date, a, ""); err != nil {
			if reason := planner.RejectionReason(err); reason != "" {
				result.Rejected = append(result.Rejected, fmt.Sprintf("#%d %q: %s", i+1, a.Name, reason))
				continue
			}
			return result, fmt.Errorf("failed to add activity %q: %w", a.Name, err)
		}
		result.Added++
	}
	return result, nil
}

func renderSlots(w io.Writer, slots []models.HourSlot) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "Day has no time range")
		return
	}
	for _, s := range slots {
		fmt.Fprintln(w, s.Label)
		for _, a := range s.Activities {
			fmt.Fprintf(w, "  %s - %s  %s\n", timeutil.To12Hour(a.Start), timeutil.To12Hour(a.End), a.Name)
		}
	}
}

func renderMetrics(w io.Writer, m models.DayMetrics) {
	fmt.Fprintf(w, "Expected total:        %.2f\n", m.ExpectedTotal)
	fmt.Fprintf(w, "Actual total:          %.2f\n", m.ActualTotal)
	fmt.Fprintf(w, "Budget difference:     %.1f%%\n", m.BudgetDifferencePercent)
	fmt.Fprintf(w, "Planning accuracy:     %.1f%%\n", m.PlanningAccuracy*100)
	fmt.Fprintf(w, "Scheduled hours:       %.2f\n", m.ScheduledHours)
	fmt.Fprintf(w, "Expected cost / hour:  %.2f\n", m.ExpectedCostDensity)
	fmt.Fprintf(w, "Actual cost / hour:    %.2f\n", m.ActualCostDensity)
}
