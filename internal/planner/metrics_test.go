package planner

import (
	"math"
	"testing"

	"github.com/benvon/tripflow/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	activities := []models.Activity{
		{Start: "09:00", End: "10:00", ExpectedCost: models.Float64Ptr(10), ActualCost: models.Float64Ptr(12)},
		{Start: "11:00", End: "13:00", ExpectedCost: models.Float64Ptr(20), ActualCost: models.Float64Ptr(18)},
	}

	m := ComputeMetrics(activities)
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"expected total", m.ExpectedTotal, 30},
		{"actual total", m.ActualTotal, 30},
		{"budget difference", m.BudgetDifferencePercent, 0},
		{"planning accuracy", m.PlanningAccuracy, 1},
		{"scheduled hours", m.ScheduledHours, 3},
		{"expected density", m.ExpectedCostDensity, 10},
		{"actual density", m.ActualCostDensity, 10},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestBudgetAndAccuracy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		expected     float64
		actual       float64
		wantDiff     float64
		wantAccuracy float64
	}{
		{name: "nothing planned", expected: 0, actual: 25, wantDiff: 0, wantAccuracy: 1},
		{name: "overspent", expected: 100, actual: 150, wantDiff: 50, wantAccuracy: 0.5},
		{name: "underspent", expected: 100, actual: 80, wantDiff: -20, wantAccuracy: 0.8},
		{name: "accuracy floors at zero", expected: 10, actual: 50, wantDiff: 400, wantAccuracy: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BudgetDifferencePercent(tt.expected, tt.actual); !almostEqual(got, tt.wantDiff) {
				t.Errorf("BudgetDifferencePercent = %v, want %v", got, tt.wantDiff)
			}
			if got := PlanningAccuracy(tt.expected, tt.actual); !almostEqual(got, tt.wantAccuracy) {
				t.Errorf("PlanningAccuracy = %v, want %v", got, tt.wantAccuracy)
			}
		})
	}
}

func TestScheduledHours_SkipsInvalidRanges(t *testing.T) {
	t.Parallel()

	activities := []models.Activity{
		{Start: "09:00", End: "09:30"},
		{Start: "", End: "10:00"},
		{Start: "12:00", End: "11:00"},
		{Start: "bad", End: "13:00"},
	}
	if got := ScheduledHours(activities); !almostEqual(got, 0.5) {
		t.Errorf("ScheduledHours = %v, want 0.5", got)
	}
	if got := CostDensity(40, 0); got != 0 {
		t.Errorf("CostDensity with no hours = %v, want 0", got)
	}
}
