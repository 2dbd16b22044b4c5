package itinerary

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/services/ai"
)

// mockDayRepo keeps days in memory; saveFunc overrides Save when set
type mockDayRepo struct {
	mu       sync.Mutex
	days     map[string]*models.DayPlan
	saves    int
	saveFunc func(ctx context.Context, day *models.DayPlan) error
}

func newMockDayRepo(days ...*models.DayPlan) *mockDayRepo {
	r := &mockDayRepo{days: make(map[string]*models.DayPlan)}
	for _, d := range days {
		r.days[dayKey(d.Scope(), d.Date)] = d.Clone()
	}
	return r
}

func dayKey(scope models.Scope, date string) string {
	return scope.Key() + "@" + date
}

func (r *mockDayRepo) Load(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayKey(scope, date)]
	if !ok {
		return nil, fmt.Errorf("day %s: %w", date, database.ErrNotFound)
	}
	return d.Clone(), nil
}

func (r *mockDayRepo) Create(ctx context.Context, day *models.DayPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dayKey(day.Scope(), day.Date)
	if _, ok := r.days[key]; ok {
		return fmt.Errorf("day %s: %w", day.Date, database.ErrDuplicateDay)
	}
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	r.days[key] = day.Clone()
	return nil
}

func (r *mockDayRepo) Save(ctx context.Context, day *models.DayPlan) error {
	if r.saveFunc != nil {
		if err := r.saveFunc(ctx, day); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.days[dayKey(day.Scope(), day.Date)] = day.Clone()
	return nil
}

func (r *mockDayRepo) Delete(ctx context.Context, scope models.Scope, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dayKey(scope, date)
	if _, ok := r.days[key]; !ok {
		return fmt.Errorf("day %s: %w", date, database.ErrNotFound)
	}
	delete(r.days, key)
	return nil
}

func (r *mockDayRepo) ListAll(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DayPlan
	for _, d := range r.days {
		if d.Scope().Key() == scope.Key() {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *mockDayRepo) stored(scope models.Scope, date string) *models.DayPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.days[dayKey(scope, date)]
}

var _ database.DayPlanRepositoryInterface = (*mockDayRepo)(nil)

type mockTripRepo struct {
	createFunc     func(ctx context.Context, trip *models.Trip) error
	getByIDFunc    func(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error)
	listByUserFunc func(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error)
	renameFunc     func(ctx context.Context, userID, tripID uuid.UUID, name string) error
	deleteFunc     func(ctx context.Context, userID, tripID uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip *models.Trip) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, trip)
	}
	trip.ID = uuid.New()
	return nil
}

func (m *mockTripRepo) GetByID(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID, tripID)
	}
	return &models.Trip{ID: tripID, UserID: userID}, nil
}

func (m *mockTripRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	if m.listByUserFunc != nil {
		return m.listByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTripRepo) Rename(ctx context.Context, userID, tripID uuid.UUID, name string) error {
	if m.renameFunc != nil {
		return m.renameFunc(ctx, userID, tripID, name)
	}
	return nil
}

func (m *mockTripRepo) Delete(ctx context.Context, userID, tripID uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, tripID)
	}
	return nil
}

var _ database.TripRepositoryInterface = (*mockTripRepo)(nil)

type cachedAnalysis struct {
	version string
	text    string
}

// fakeCache is an in-memory AnalysisCache that, like the Redis one, only serves entries
// computed for the day's current content
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]cachedAnalysis
	invalidated []string
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]cachedAnalysis)}
}

func (c *fakeCache) GetAnalysis(ctx context.Context, day *models.DayPlan) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	e, ok := c.entries[dayKey(day.Scope(), day.Date)]
	if !ok || e.version != day.ContentVersion() {
		return "", false, nil
	}
	return e.text, true, nil
}

func (c *fakeCache) SetAnalysis(ctx context.Context, day *models.DayPlan, analysis string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dayKey(day.Scope(), day.Date)] = cachedAnalysis{version: day.ContentVersion(), text: analysis}
	return nil
}

// raw reports whether anything is stored for the day, whatever its version
func (c *fakeCache) raw(scope models.Scope, date string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[dayKey(scope, date)]
	return e.text, ok
}

func (c *fakeCache) InvalidateAnalysis(ctx context.Context, day *models.DayPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := dayKey(day.Scope(), day.Date)
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *fakeCache) HydrateAnalysis(ctx context.Context, day *models.DayPlan) error {
	text, ok, err := c.GetAnalysis(ctx, day)
	if err != nil {
		return err
	}
	if ok {
		day.AIAnalysisResult = &text
		day.AIHasAnalyzed = true
	}
	return nil
}

var _ AnalysisCache = (*fakeCache)(nil)

type mockProvider struct {
	analyzeFunc  func(ctx context.Context, req ai.DayAnalysisRequest) (string, error)
	autofillFunc func(ctx context.Context, req ai.AutofillRequest) ([]models.AICandidate, error)
	analyzeCalls int
}

func (m *mockProvider) AnalyzeDay(ctx context.Context, req ai.DayAnalysisRequest) (string, error) {
	m.analyzeCalls++
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, req)
	}
	return "looks good", nil
}

func (m *mockProvider) AutofillDay(ctx context.Context, req ai.AutofillRequest) ([]models.AICandidate, error) {
	if m.autofillFunc != nil {
		return m.autofillFunc(ctx, req)
	}
	return nil, nil
}

var _ ai.Provider = (*mockProvider)(nil)

type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	jobs        []*queue.Job
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.jobs = append(m.jobs, job)
	return nil
}

var _ queue.Enqueuer = (*mockEnqueuer)(nil)

func testActivity(id, name, start, end string, expected float64) models.Activity {
	return models.Activity{
		ID:           id,
		Name:         name,
		Start:        start,
		End:          end,
		ExpectedCost: models.Float64Ptr(expected),
		Source:       models.ActivitySourceUser,
	}
}
