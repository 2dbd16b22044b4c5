package models

import "strings"

// ActivitySource records who created an activity
type ActivitySource string

const (
	ActivitySourceUser ActivitySource = "user"
	ActivitySourceAI   ActivitySource = "ai"
)

// Coords is a geographic position
type Coords struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Activity is a single planned (or performed) item within a day.
// Times are zero-padded 24h HH:MM values once saved.
type Activity struct {
	ID           string         `json:"id" yaml:"id,omitempty"`
	Name         string         `json:"name" yaml:"name"`
	Start        string         `json:"start,omitempty" yaml:"start,omitempty"`
	End          string         `json:"end,omitempty" yaml:"end,omitempty"`
	ExpectedCost *float64       `json:"expected_cost" yaml:"expected_cost"`
	ActualCost   *float64       `json:"actual_cost" yaml:"actual_cost,omitempty"`
	Location     string         `json:"location,omitempty" yaml:"location,omitempty"`
	Coords       *Coords        `json:"coords" yaml:"coords,omitempty"`
	Source       ActivitySource `json:"source" yaml:"source,omitempty"`
}

// Clone returns a deep copy of the activity
func (a Activity) Clone() Activity {
	out := a
	if a.ExpectedCost != nil {
		v := *a.ExpectedCost
		out.ExpectedCost = &v
	}
	if a.ActualCost != nil {
		v := *a.ActualCost
		out.ActualCost = &v
	}
	if a.Coords != nil {
		c := *a.Coords
		out.Coords = &c
	}
	return out
}

// CloneActivities deep-copies a slice of activities
func CloneActivities(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// AICandidate is an activity proposed by the AI autofill collaborator.
// Nothing about its shape is guaranteed until it has been checked.
type AICandidate struct {
	Name         string   `json:"name"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	ExpectedCost *float64 `json:"expectedCost,omitempty"`
	Location     string   `json:"location,omitempty"`
	Coords       *Coords  `json:"coords,omitempty"`
}

// Complete reports whether the candidate carries the fields required for insertion
func (c AICandidate) Complete() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Start) != "" && strings.TrimSpace(c.End) != ""
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}
