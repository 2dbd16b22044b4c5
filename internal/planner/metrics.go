package planner

import (
	"math"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

// ComputeMetrics derives the budget and time aggregates of a set of activities
func ComputeMetrics(activities []models.Activity) models.DayMetrics {
	var m models.DayMetrics
	for _, a := range activities {
		if a.ExpectedCost != nil {
			m.ExpectedTotal += *a.ExpectedCost
		}
		if a.ActualCost != nil {
			m.ActualTotal += *a.ActualCost
		}
	}

	m.BudgetDifferencePercent = BudgetDifferencePercent(m.ExpectedTotal, m.ActualTotal)
	m.PlanningAccuracy = PlanningAccuracy(m.ExpectedTotal, m.ActualTotal)
	m.ScheduledHours = ScheduledHours(activities)
	m.ExpectedCostDensity = CostDensity(m.ExpectedTotal, m.ScheduledHours)
	m.ActualCostDensity = CostDensity(m.ActualTotal, m.ScheduledHours)
	return m
}

// BudgetDifferencePercent is the actual spend relative to plan, in percent
func BudgetDifferencePercent(expected, actual float64) float64 {
	if expected == 0 {
		return 0
	}
	return (actual - expected) / expected * 100
}

// PlanningAccuracy scores how close actual spend was to plan, from 0 to 1
func PlanningAccuracy(expected, actual float64) float64 {
	if expected == 0 {
		return 1
	}
	score := 1 - math.Abs(actual-expected)/expected
	return math.Max(0, math.Min(1, score))
}

// ScheduledHours sums the durations of activities that have a valid time range
func ScheduledHours(activities []models.Activity) float64 {
	total := 0
	for _, a := range activities {
		if a.Start == "" || a.End == "" {
			continue
		}
		start, err := timeutil.ToMinutes(a.Start)
		if err != nil {
			continue
		}
		end, err := timeutil.ToMinutes(a.End)
		if err != nil || end <= start {
			continue
		}
		total += end - start
	}
	return float64(total) / 60
}

// CostDensity is cost per scheduled hour
func CostDensity(total, hours float64) float64 {
	if hours == 0 {
		return 0
	}
	return total / hours
}
