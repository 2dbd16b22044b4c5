package planner

import (
	"context"
	"sync"

	"github.com/benvon/tripflow/internal/models"
	"github.com/google/uuid"
)

// mockSaver is a mock implementation of Saver
type mockSaver struct {
	mu       sync.Mutex
	saveFunc func(ctx context.Context, day *models.DayPlan) error
	saved    []*models.DayPlan
}

func (m *mockSaver) Save(ctx context.Context, day *models.DayPlan) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, day); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, day.Clone())
	return nil
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

var _ Saver = (*mockSaver)(nil)

// mockInvalidator is a mock implementation of AnalysisInvalidator
type mockInvalidator struct {
	invalidateFunc func(ctx context.Context, day *models.DayPlan) error
	calls          int
}

func (m *mockInvalidator) InvalidateAnalysis(ctx context.Context, day *models.DayPlan) error {
	m.calls++
	if m.invalidateFunc != nil {
		return m.invalidateFunc(ctx, day)
	}
	return nil
}

var _ AnalysisInvalidator = (*mockInvalidator)(nil)

func newTestDay(start, end string, activities ...models.Activity) *models.DayPlan {
	analysis := "looks great"
	return &models.DayPlan{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Date:             "2025-06-01",
		StartTime:        start,
		EndTime:          end,
		Activities:       activities,
		AIAnalysisResult: &analysis,
		AIHasAnalyzed:    true,
	}
}

func activity(id, name, start, end string, expected float64) models.Activity {
	return models.Activity{
		ID:           id,
		Name:         name,
		Start:        start,
		End:          end,
		ExpectedCost: models.Float64Ptr(expected),
		Source:       models.ActivitySourceUser,
	}
}

func starts(activities []models.Activity) []string {
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = a.Start
	}
	return out
}

func ids(activities []models.Activity) []string {
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = a.ID
	}
	return out
}
