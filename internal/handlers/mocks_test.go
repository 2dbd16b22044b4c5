package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/planner"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/request"
	"github.com/benvon/tripflow/internal/services/geocode"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/services/oidc"
	"github.com/benvon/tripflow/internal/services/weather"
)

var errNotMocked = errors.New("not mocked")

type mockDayPlanner struct {
	createDayFunc      func(ctx context.Context, scope models.Scope, in itinerary.CreateDayInput) (*models.DayPlan, error)
	getDayFunc         func(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error)
	listDaysFunc       func(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error)
	deleteDayFunc      func(ctx context.Context, scope models.Scope, date string) error
	addActivityFunc    func(ctx context.Context, scope models.Scope, date string, activity models.Activity, slotStart string) (models.Activity, error)
	editActivityFunc   func(ctx context.Context, scope models.Scope, date, id string, patch itinerary.ActivityPatch) (models.Activity, error)
	deleteActivityFunc func(ctx context.Context, scope models.Scope, date, id string) error
	rescheduleFunc     func(ctx context.Context, scope models.Scope, date, start, end string, confirm bool) (planner.RescheduleResult, error)
	slotsFunc          func(ctx context.Context, scope models.Scope, date string) ([]models.HourSlot, error)
	gapsFunc           func(ctx context.Context, scope models.Scope, date string) ([]models.Gap, error)
	metricsFunc        func(ctx context.Context, scope models.Scope, date string) (models.DayMetrics, error)
	cachedAnalysisFunc func(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error)
	analyzeFunc        func(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error)
	queueAnalysisFunc  func(ctx context.Context, scope models.Scope, date string) (*queue.Job, error)
	autofillFunc       func(ctx context.Context, scope models.Scope, date, locationContext string) (planner.AutofillResult, error)
}

var _ DayPlanner = (*mockDayPlanner)(nil)

func (m *mockDayPlanner) CreateDay(ctx context.Context, scope models.Scope, in itinerary.CreateDayInput) (*models.DayPlan, error) {
	if m.createDayFunc == nil {
		return nil, errNotMocked
	}
	return m.createDayFunc(ctx, scope, in)
}

func (m *mockDayPlanner) GetDay(ctx context.Context, scope models.Scope, date string) (*models.DayPlan, error) {
	if m.getDayFunc == nil {
		return nil, errNotMocked
	}
	return m.getDayFunc(ctx, scope, date)
}

func (m *mockDayPlanner) ListDays(ctx context.Context, scope models.Scope) ([]*models.DayPlan, error) {
	if m.listDaysFunc == nil {
		return nil, errNotMocked
	}
	return m.listDaysFunc(ctx, scope)
}

func (m *mockDayPlanner) DeleteDay(ctx context.Context, scope models.Scope, date string) error {
	if m.deleteDayFunc == nil {
		return errNotMocked
	}
	return m.deleteDayFunc(ctx, scope, date)
}

func (m *mockDayPlanner) AddActivity(ctx context.Context, scope models.Scope, date string, activity models.Activity, slotStart string) (models.Activity, error) {
	if m.addActivityFunc == nil {
		return models.Activity{}, errNotMocked
	}
	return m.addActivityFunc(ctx, scope, date, activity, slotStart)
}

func (m *mockDayPlanner) EditActivity(ctx context.Context, scope models.Scope, date, id string, patch itinerary.ActivityPatch) (models.Activity, error) {
	if m.editActivityFunc == nil {
		return models.Activity{}, errNotMocked
	}
	return m.editActivityFunc(ctx, scope, date, id, patch)
}

func (m *mockDayPlanner) DeleteActivity(ctx context.Context, scope models.Scope, date, id string) error {
	if m.deleteActivityFunc == nil {
		return errNotMocked
	}
	return m.deleteActivityFunc(ctx, scope, date, id)
}

func (m *mockDayPlanner) Reschedule(ctx context.Context, scope models.Scope, date, start, end string, confirm bool) (planner.RescheduleResult, error) {
	if m.rescheduleFunc == nil {
		return planner.RescheduleResult{}, errNotMocked
	}
	return m.rescheduleFunc(ctx, scope, date, start, end, confirm)
}

func (m *mockDayPlanner) Slots(ctx context.Context, scope models.Scope, date string) ([]models.HourSlot, error) {
	if m.slotsFunc == nil {
		return nil, errNotMocked
	}
	return m.slotsFunc(ctx, scope, date)
}

func (m *mockDayPlanner) Gaps(ctx context.Context, scope models.Scope, date string) ([]models.Gap, error) {
	if m.gapsFunc == nil {
		return nil, errNotMocked
	}
	return m.gapsFunc(ctx, scope, date)
}

func (m *mockDayPlanner) Metrics(ctx context.Context, scope models.Scope, date string) (models.DayMetrics, error) {
	if m.metricsFunc == nil {
		return models.DayMetrics{}, errNotMocked
	}
	return m.metricsFunc(ctx, scope, date)
}

func (m *mockDayPlanner) CachedAnalysis(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error) {
	if m.cachedAnalysisFunc == nil {
		return nil, errNotMocked
	}
	return m.cachedAnalysisFunc(ctx, scope, date)
}

func (m *mockDayPlanner) Analyze(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error) {
	if m.analyzeFunc == nil {
		return nil, errNotMocked
	}
	return m.analyzeFunc(ctx, scope, date)
}

func (m *mockDayPlanner) QueueAnalysis(ctx context.Context, scope models.Scope, date string) (*queue.Job, error) {
	if m.queueAnalysisFunc == nil {
		return nil, errNotMocked
	}
	return m.queueAnalysisFunc(ctx, scope, date)
}

func (m *mockDayPlanner) Autofill(ctx context.Context, scope models.Scope, date, locationContext string) (planner.AutofillResult, error) {
	if m.autofillFunc == nil {
		return planner.AutofillResult{}, errNotMocked
	}
	return m.autofillFunc(ctx, scope, date, locationContext)
}

type mockTripManager struct {
	createTripFunc func(ctx context.Context, userID uuid.UUID, name string) (*models.Trip, error)
	listTripsFunc  func(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error)
	getTripFunc    func(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error)
	renameTripFunc func(ctx context.Context, userID, tripID uuid.UUID, name string) (*models.Trip, error)
	deleteTripFunc func(ctx context.Context, userID, tripID uuid.UUID) error
}

var _ TripManager = (*mockTripManager)(nil)

func (m *mockTripManager) CreateTrip(ctx context.Context, userID uuid.UUID, name string) (*models.Trip, error) {
	if m.createTripFunc == nil {
		return nil, errNotMocked
	}
	return m.createTripFunc(ctx, userID, name)
}

func (m *mockTripManager) ListTrips(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	if m.listTripsFunc == nil {
		return nil, errNotMocked
	}
	return m.listTripsFunc(ctx, userID)
}

func (m *mockTripManager) GetTrip(ctx context.Context, userID, tripID uuid.UUID) (*models.Trip, error) {
	if m.getTripFunc == nil {
		return nil, errNotMocked
	}
	return m.getTripFunc(ctx, userID, tripID)
}

func (m *mockTripManager) RenameTrip(ctx context.Context, userID, tripID uuid.UUID, name string) (*models.Trip, error) {
	if m.renameTripFunc == nil {
		return nil, errNotMocked
	}
	return m.renameTripFunc(ctx, userID, tripID, name)
}

func (m *mockTripManager) DeleteTrip(ctx context.Context, userID, tripID uuid.UUID) error {
	if m.deleteTripFunc == nil {
		return errNotMocked
	}
	return m.deleteTripFunc(ctx, userID, tripID)
}

type mockLoginFlow struct {
	exchangeFunc func(ctx context.Context, code string) (*oauth2.Token, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

var _ LoginFlow = (*mockLoginFlow)(nil)

func (m *mockLoginFlow) GetLoginConfig(ctx context.Context) *oidc.LoginConfig {
	return &oidc.LoginConfig{
		AuthorizationEndpoint: "https://idp.example.com/authorize",
		TokenEndpoint:         "https://idp.example.com/token",
		ClientID:              "client",
		Scope:                 "openid email profile",
	}
}

func (m *mockLoginFlow) AuthCodeURL(ctx context.Context, state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (m *mockLoginFlow) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.exchangeFunc == nil {
		return nil, errNotMocked
	}
	return m.exchangeFunc(ctx, code)
}

func (m *mockLoginFlow) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.refreshFunc == nil {
		return nil, errNotMocked
	}
	return m.refreshFunc(ctx, refreshToken)
}

type mockWeather struct {
	forecastFunc func(ctx context.Context, lat, lng float64, date string) (*weather.Forecast, error)
}

var _ weather.Service = (*mockWeather)(nil)

func (m *mockWeather) Forecast(ctx context.Context, lat, lng float64, date string) (*weather.Forecast, error) {
	return m.forecastFunc(ctx, lat, lng, date)
}

type mockGeocoder struct {
	reverseFunc func(ctx context.Context, lat, lng float64) (*geocode.Place, error)
	searchFunc  func(ctx context.Context, query string) ([]geocode.Place, error)
}

var _ geocode.Service = (*mockGeocoder)(nil)

func (m *mockGeocoder) Reverse(ctx context.Context, lat, lng float64) (*geocode.Place, error) {
	return m.reverseFunc(ctx, lat, lng)
}

func (m *mockGeocoder) Search(ctx context.Context, query string) ([]geocode.Place, error) {
	return m.searchFunc(ctx, query)
}

// envelope is the decoded JSON response body
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", body, err)
	}
	return env
}

// withUser attaches an authenticated user to the request
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(request.WithUser(r.Context(), user))
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "traveler@example.com"}
}
