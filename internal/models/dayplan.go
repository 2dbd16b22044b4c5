package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PlanDateLayout is the calendar date format used for day plans
const PlanDateLayout = "2006-01-02"

// Scope identifies the owner of a set of day plans: a user, optionally narrowed to one trip
type Scope struct {
	UserID uuid.UUID  `json:"user_id"`
	TripID *uuid.UUID `json:"trip_id,omitempty"`
}

// UserScope returns the scope for a user's standalone days
func UserScope(userID uuid.UUID) Scope {
	return Scope{UserID: userID}
}

// TripScope returns the scope for the days of a trip
func TripScope(userID, tripID uuid.UUID) Scope {
	return Scope{UserID: userID, TripID: &tripID}
}

// Key renders the scope as a storage path: u:<user> or u:<user>/t:<trip>
func (s Scope) Key() string {
	key := "u:" + s.UserID.String()
	if s.TripID != nil {
		key += "/t:" + s.TripID.String()
	}
	return key
}

// DayPlan is one calendar day of activities, standalone or within a trip.
// Activities is the canonical flat list; slots are derived from StartTime/EndTime.
type DayPlan struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TripID     *uuid.UUID `json:"trip_id,omitempty"`
	Date       string     `json:"date"`
	StartTime  string     `json:"start_time,omitempty"`
	EndTime    string     `json:"end_time,omitempty"`
	Activities []Activity `json:"activities"`
	// Analysis cache, hydrated from the cache layer and never written to the database
	AIAnalysisResult *string   `json:"ai_analysis_result,omitempty"`
	AIHasAnalyzed    bool      `json:"ai_has_analyzed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Scope returns the scope the day belongs to
func (d *DayPlan) Scope() Scope {
	return Scope{UserID: d.UserID, TripID: d.TripID}
}

// HasTimeRange reports whether the day is bounded by a start/end time
func (d *DayPlan) HasTimeRange() bool {
	return d.StartTime != "" && d.EndTime != ""
}

// ContentVersion fingerprints the time range and activities. An analysis cached against one
// version does not describe a day with another.
func (d *DayPlan) ContentVersion() string {
	activities := d.Activities
	if len(activities) == 0 {
		activities = nil
	}
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(struct {
		Start      string     `json:"s"`
		End        string     `json:"e"`
		Activities []Activity `json:"a"`
	}{d.StartTime, d.EndTime, activities})
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// ClearAnalysis drops the cached AI analysis
func (d *DayPlan) ClearAnalysis() {
	d.AIAnalysisResult = nil
	d.AIHasAnalyzed = false
}

// Clone returns a deep copy of the day
func (d *DayPlan) Clone() *DayPlan {
	out := *d
	out.Activities = CloneActivities(d.Activities)
	if d.TripID != nil {
		id := *d.TripID
		out.TripID = &id
	}
	if d.AIAnalysisResult != nil {
		s := *d.AIAnalysisResult
		out.AIAnalysisResult = &s
	}
	return &out
}

// HourSlot is a derived sub-range of a day's time span
type HourSlot struct {
	Label      string     `json:"label"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Activities []Activity `json:"activities"`
}

// Gap is a free interval in a day
type Gap struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayMetrics are the derived budget and time aggregates of a day
type DayMetrics struct {
	ExpectedTotal           float64 `json:"expected_total"`
	ActualTotal             float64 `json:"actual_total"`
	BudgetDifferencePercent float64 `json:"budget_difference_percent"`
	PlanningAccuracy        float64 `json:"planning_accuracy"`
	ScheduledHours          float64 `json:"scheduled_hours"`
	ExpectedCostDensity     float64 `json:"expected_cost_density"`
	ActualCostDensity       float64 `json:"actual_cost_density"`
}
