package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/models"
)

const (
	// DefaultModel is the default model used for day analysis
	DefaultModel = "arcee-ai/trinity-mini:free"
	// DefaultAutofillModel is the default model used for autofill
	DefaultAutofillModel = "nvidia/nemotron-3-nano-30b-a3b:free"
	// DefaultBaseURL is the default OpenAI-compatible API base URL (OpenRouter)
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second
	// DefaultAppTitle is sent as X-Title so OpenRouter can attribute requests
	DefaultAppTitle = "TripFlow"

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"

	tracerName = "github.com/benvon/tripflow/internal/services/ai"
)

// OpenAIProvider implements Provider on top of an OpenAI-compatible chat completions API
type OpenAIProvider struct {
	client        openai.Client
	model         string
	autofillModel string
	logger        *zap.Logger
	debugMode     bool
	tracer        trace.Tracer
}

// NewOpenAIProvider creates a provider against the default base URL
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a provider with logger support.
// Extra request options are applied after the defaults.
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool, opts ...option.RequestOption) *OpenAIProvider {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithHeader("X-Title", DefaultAppTitle),
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIProvider{
		client:        openai.NewClient(clientOpts...),
		model:         model,
		autofillModel: model,
		logger:        logger,
		debugMode:     debugMode,
		tracer:        otel.Tracer(tracerName),
	}
}

// WithAutofillModel sets a separate model for autofill requests
func (p *OpenAIProvider) WithAutofillModel(model string) *OpenAIProvider {
	if model != "" {
		p.autofillModel = model
	}
	return p
}

// AnalyzeDay asks the model for feedback on a day's schedule
func (p *OpenAIProvider) AnalyzeDay(ctx context.Context, req DayAnalysisRequest) (string, error) {
	prompt, err := buildAnalysisPrompt(req)
	if err != nil {
		return "", err
	}
	content, err := p.complete(ctx, "analyze_day", p.model, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to analyze day: %w", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("failed to analyze day: %w", ErrEmptyResponse)
	}
	return content, nil
}

// AutofillDay asks the model for activities filling the day's gaps
func (p *OpenAIProvider) AutofillDay(ctx context.Context, req AutofillRequest) ([]models.AICandidate, error) {
	prompt, err := buildAutofillPrompt(req)
	if err != nil {
		return nil, err
	}
	content, err := p.complete(ctx, "autofill_day", p.autofillModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to autofill day: %w", err)
	}
	candidates, err := ParseAutofillResponse(content)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("autofill_response_unparsable", append(callInfoFrom(ctx).fields(),
				zap.Error(err),
				zap.String("response_preview", SanitizeResponse(content, false)),
			)...)
		}
		return nil, err
	}
	return candidates, nil
}

// complete sends a single-user-message chat completion and returns the first choice
func (p *OpenAIProvider) complete(ctx context.Context, operation, model, prompt string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "ai."+operation, trace.WithAttributes(
		attribute.String("ai.model", model),
		attribute.Int("ai.prompt_length", len(prompt)),
	))
	defer span.End()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}

	call := callInfoFrom(ctx).fields()

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request", append(call,
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Int("prompt_length", len(prompt)),
			zap.Int("message_count", len(messages)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
		)...)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error", append(call,
				zap.String("operation", operation),
				zap.String("model", model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)...)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", apiErr
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, ErrNoChoicesInResponse)
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("ai.response_length", len(content)))

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response", append(call,
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)...)
	}
	return content, nil
}

func buildAnalysisPrompt(req DayAnalysisRequest) (string, error) {
	activities, err := json.MarshalIndent(promptActivities(req.Activities), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode activities: %w", err)
	}
	metrics, err := json.MarshalIndent(req.Metrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics: %w", err)
	}
	date := req.Date
	if date == "" {
		date = "Unknown"
	}

	var b strings.Builder
	b.WriteString("Analyze the travel schedule and give good advice:\n\n")
	fmt.Fprintf(&b, "Date: %s\n\n", date)
	fmt.Fprintf(&b, "Activities:\n%s\n\n", activities)
	fmt.Fprintf(&b, "Metrics:\n%s\n\n", metrics)
	b.WriteString("Please give:\n")
	b.WriteString("- Tourist destination feedback and suggestions\n")
	b.WriteString("- Time management feedback\n")
	b.WriteString("- Budget feedback\n")
	b.WriteString("- Cost efficiency feedback\n")
	b.WriteString("- Feasibility\n")
	b.WriteString("- Best ways to navigate to each location/activity. Be specific.\n")
	b.WriteString("- Best airline and cheapest flights according to which month/date/time. Best hotels in the area. Make it specific to the situation.\n")
	b.WriteString("- Overall planning score (1-100)\n")
	b.WriteString("- And anything else important\n")
	b.WriteString("- REMEMBER all costs are in USD\n")
	return b.String(), nil
}

func buildAutofillPrompt(req AutofillRequest) (string, error) {
	slots := req.EmptySlots
	if slots == nil {
		slots = []models.Gap{}
	}
	emptySlots, err := json.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("failed to encode empty slots: %w", err)
	}
	existing, err := json.Marshal(promptActivities(req.ExistingActivities))
	if err != nil {
		return "", fmt.Errorf("failed to encode existing activities: %w", err)
	}

	location := "Location is not specified."
	if lc := strings.TrimSpace(req.LocationContext); lc != "" {
		location = fmt.Sprintf("The trip is in %s.", lc)
	}

	var b strings.Builder
	b.WriteString("Task: Fill these empty time slots with travel activities.\n")
	b.WriteString(location + "\n")
	if req.DayStart != "" && req.DayEnd != "" {
		fmt.Fprintf(&b, "Day runs from %s to %s.\n", req.DayStart, req.DayEnd)
	}
	fmt.Fprintf(&b, "Empty Slots: %s\n", emptySlots)
	fmt.Fprintf(&b, "Existing Activities: %s\n", existing)
	b.WriteString("Return EXACTLY VALID JSON. This means no markdown and no conversation.\n")
	b.WriteString("Start times must be in the time slot it's in. End times must be after start times but don't have to be in the time slot in question.\n")
	b.WriteString("Use 24-hour HH:MM times.\n")
	b.WriteString("Be a bit specific on activity locations and names. For example, you can include city name, state/province, or country in location.\n")
	b.WriteString("Create accurate latitude and longitude coordinates for each location, and put it in the 'coords' object.\n")
	b.WriteString("DO NOT make new activities that are already existing in the existing activities list.\n")
	b.WriteString("DO NOT MAKE ANY REPEAT ACTIVITIES AT SAME LANDMARK.\n")
	b.WriteString("Make sure the schedule flows and is feasible. Make sure locations and landmarks are real. All costs are in USD.\n")
	b.WriteString("Example format:\n")
	b.WriteString(`{"activities": [{"name": "Lunch at Disneyland", "start": "11:00", "end": "12:00", "expectedCost": 40, "location": "Disneyland Anaheim", "coords": {"lat": 33.8121, "lng": -117.919}}]}`)
	b.WriteString("\n")
	return b.String(), nil
}

// promptActivity is the subset of an activity the model sees
type promptActivity struct {
	Name         string         `json:"name"`
	Start        string         `json:"start,omitempty"`
	End          string         `json:"end,omitempty"`
	ExpectedCost *float64       `json:"expectedCost,omitempty"`
	ActualCost   *float64       `json:"actualCost,omitempty"`
	Location     string         `json:"location,omitempty"`
	Coords       *models.Coords `json:"coords,omitempty"`
}

func promptActivities(in []models.Activity) []promptActivity {
	out := make([]promptActivity, 0, len(in))
	for _, a := range in {
		out = append(out, promptActivity{
			Name:         a.Name,
			Start:        a.Start,
			End:          a.End,
			ExpectedCost: a.ExpectedCost,
			ActualCost:   a.ActualCost,
			Location:     a.Location,
			Coords:       a.Coords,
		})
	}
	return out
}

// RegisterOpenAI registers the OpenAI-compatible provider under "openai" and "openrouter".
// Providers it builds log through logger; config["debug"] enables prompt logging.
func RegisterOpenAI(registry *ProviderRegistry, logger *zap.Logger) {
	factory := func(config map[string]string) (Provider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}
		debug := false
		if v := config["debug"]; v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse debug setting %q: %w", v, err)
			}
			debug = parsed
		}
		p := NewOpenAIProviderWithLogger(apiKey, config["base_url"], config["model"], logger, debug)
		return p.WithAutofillModel(config["autofill_model"]), nil
	}
	registry.Register("openai", factory)
	registry.Register("openrouter", factory)
}

var _ Provider = (*OpenAIProvider)(nil)
