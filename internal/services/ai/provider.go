package ai

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/models"
)

// Provider is the interface for AI providers that review and fill day plans
type Provider interface {
	// AnalyzeDay returns free-form planning advice for a day
	AnalyzeDay(ctx context.Context, req DayAnalysisRequest) (string, error)

	// AutofillDay proposes activities for the empty intervals of a day.
	// Candidates are returned as parsed; callers must still check them.
	AutofillDay(ctx context.Context, req AutofillRequest) ([]models.AICandidate, error)
}

// DayAnalysisRequest is the input of a day analysis
type DayAnalysisRequest struct {
	Date       string            `json:"date"`
	Activities []models.Activity `json:"activities"`
	Metrics    models.DayMetrics `json:"metrics"`
}

// AutofillRequest is the input of an autofill call
type AutofillRequest struct {
	ExistingActivities []models.Activity `json:"existingActivities"`
	EmptySlots         []models.Gap      `json:"emptySlots"`
	DayStart           string            `json:"dayStart,omitempty"`
	DayEnd             string            `json:"dayEnd,omitempty"`
	LocationContext    string            `json:"locationContext,omitempty"`
}

// ProviderFactory creates an AI provider from string settings
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// Settings selects and configures a provider
type Settings struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	AutofillModel string
	Debug         bool
}

// ErrNotConfigured is returned by NewFromSettings when no API key is set
var ErrNotConfigured = errors.New("AI API key not configured")

// DefaultProvider is used when Settings.Provider is empty
const DefaultProvider = "openai"

// NewFromSettings builds the configured provider from the registry. The logger and
// debug flag reach the provider so debug mode can log prompts.
func NewFromSettings(s Settings, logger *zap.Logger) (Provider, error) {
	if s.APIKey == "" {
		return nil, ErrNotConfigured
	}
	name := s.Provider
	if name == "" {
		name = DefaultProvider
	}

	registry := NewProviderRegistry()
	RegisterOpenAI(registry, logger)
	return registry.GetProvider(name, map[string]string{
		"api_key":        s.APIKey,
		"model":          s.Model,
		"autofill_model": s.AutofillModel,
		"base_url":       s.BaseURL,
		"debug":          strconv.FormatBool(s.Debug),
	})
}
