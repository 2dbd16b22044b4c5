package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

// Saver persists a day plan
type Saver interface {
	Save(ctx context.Context, day *models.DayPlan) error
}

// AnalysisInvalidator discards any cached AI analysis for a day
type AnalysisInvalidator interface {
	InvalidateAnalysis(ctx context.Context, day *models.DayPlan) error
}

// ActivityStore owns the activities of one day. Every mutation is validated,
// invalidates the day's cached analysis and is persisted before it becomes visible.
type ActivityStore struct {
	day         *models.DayPlan
	saver       Saver
	invalidator AnalysisInvalidator
}

// NewActivityStore creates a store over day. invalidator may be nil.
func NewActivityStore(day *models.DayPlan, saver Saver, invalidator AnalysisInvalidator) *ActivityStore {
	return &ActivityStore{
		day:         day,
		saver:       saver,
		invalidator: invalidator,
	}
}

// Day returns a copy of the current day
func (s *ActivityStore) Day() *models.DayPlan {
	return s.day.Clone()
}

// Activities returns a copy of the current activities in order
func (s *ActivityStore) Activities() []models.Activity {
	return models.CloneActivities(s.day.Activities)
}

// Insert validates candidate against slot (or the day when slot is nil) and adds it
func (s *ActivityStore) Insert(ctx context.Context, candidate models.Activity, slot *models.HourSlot) (models.Activity, error) {
	activity, err := Validate(candidate, slot, s.day)
	if err != nil {
		return models.Activity{}, err
	}
	if s.indexOf(activity.ID) >= 0 {
		activity.ID = NewActivityID()
	}

	next := s.day.Clone()
	next.Activities = append(next.Activities, activity)
	SortActivities(next.Activities)
	if err := s.commit(ctx, next); err != nil {
		return models.Activity{}, err
	}
	return activity.Clone(), nil
}

// Delete removes the activity with the given id
func (s *ActivityStore) Delete(ctx context.Context, id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrActivityNotFound, id)
	}

	next := s.day.Clone()
	next.Activities = append(next.Activities[:idx], next.Activities[idx+1:]...)
	return s.commit(ctx, next)
}

// InsertAIGenerated adds an AI-proposed activity. The candidate's required
// fields are checked, but costs and slot containment are not validated.
func (s *ActivityStore) InsertAIGenerated(ctx context.Context, candidate models.AICandidate) (models.Activity, error) {
	next := s.day.Clone()
	activity, err := appendAICandidate(next, candidate)
	if err != nil {
		return models.Activity{}, err
	}
	if err := s.commit(ctx, next); err != nil {
		return models.Activity{}, err
	}
	return activity.Clone(), nil
}

// appendAICandidate admits candidate into day's activity list when it is complete
// and does not duplicate an existing activity by name or start
func appendAICandidate(day *models.DayPlan, candidate models.AICandidate) (models.Activity, error) {
	if !candidate.Complete() {
		return models.Activity{}, ErrIncompleteActivity
	}
	start, err := timeutil.Normalize(candidate.Start)
	if err != nil {
		return models.Activity{}, fmt.Errorf("%w: start %q", ErrIncompleteActivity, candidate.Start)
	}
	end, err := timeutil.Normalize(candidate.End)
	if err != nil {
		return models.Activity{}, fmt.Errorf("%w: end %q", ErrIncompleteActivity, candidate.End)
	}

	name := strings.TrimSpace(candidate.Name)
	for _, existing := range day.Activities {
		if strings.EqualFold(existing.Name, name) {
			return models.Activity{}, fmt.Errorf("%w: name %q already planned", ErrDuplicateActivity, name)
		}
		if existing.Start == start {
			return models.Activity{}, fmt.Errorf("%w: another activity starts at %s", ErrDuplicateActivity, start)
		}
	}

	cost := 0.0
	if candidate.ExpectedCost != nil && *candidate.ExpectedCost > 0 {
		cost = *candidate.ExpectedCost
	}
	activity := models.Activity{
		ID:           NewActivityID(),
		Name:         name,
		Start:        start,
		End:          end,
		ExpectedCost: &cost,
		ActualCost:   nil,
		Location:     strings.TrimSpace(candidate.Location),
		Source:       models.ActivitySourceAI,
	}
	if candidate.Coords != nil {
		c := *candidate.Coords
		activity.Coords = &c
	}

	day.Activities = append(day.Activities, activity)
	SortActivities(day.Activities)
	return activity, nil
}

// commit invalidates the cached analysis, persists next and only then makes it current.
// On any collaborator failure the store keeps its previous state.
func (s *ActivityStore) commit(ctx context.Context, next *models.DayPlan) error {
	next.ClearAnalysis()
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateAnalysis(ctx, next); err != nil {
			return fmt.Errorf("failed to invalidate analysis: %w", err)
		}
	}
	if err := s.saver.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save day: %w", err)
	}
	*s.day = *next
	return nil
}

func (s *ActivityStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, a := range s.day.Activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}
