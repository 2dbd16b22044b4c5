package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the weatherapi.com v1 endpoint
	DefaultBaseURL = "https://api.weatherapi.com/v1"
	// defaultUpstreamMessage is used when weatherapi.com fails without a message
	defaultUpstreamMessage = "Unknown WeatherAPI error. You might have to make the date closer to the current day to view weather."
)

var (
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("weather API key not configured")
	// ErrNoForecast is returned when the upstream answer carries no forecast day
	ErrNoForecast = errors.New("no forecast available")
)

// UpstreamError carries the status and message weatherapi.com returned
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather API error (status %d): %s", e.StatusCode, e.Message)
}

// Forecast is the trimmed forecast for one location and day
type Forecast struct {
	Location string            `json:"location"`
	Forecast []json.RawMessage `json:"forecast"`
}

// Service fetches day forecasts
type Service interface {
	Forecast(ctx context.Context, lat, lng float64, date string) (*Forecast, error)
}

// Client calls the weatherapi.com forecast endpoint
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

// NewClient creates a weatherapi.com client
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}
}

type forecastResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []json.RawMessage `json:"forecastday"`
	} `json:"forecast"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Forecast returns the forecast for the day at the given coordinates.
// An empty date asks weatherapi.com for today.
func (c *Client) Forecast(ctx context.Context, lat, lng float64, date string) (*Forecast, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("q", fmt.Sprintf("%g,%g", lat, lng))
	if date != "" {
		q.Set("dt", date)
	}
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	var data forecastResponse
	decodeErr := json.Unmarshal(body, &data)

	if resp.StatusCode != http.StatusOK {
		msg := defaultUpstreamMessage
		if decodeErr == nil && data.Error != nil && data.Error.Message != "" {
			msg = data.Error.Message
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", decodeErr)
	}
	if len(data.Forecast.ForecastDay) == 0 {
		return nil, ErrNoForecast
	}

	return &Forecast{
		Location: fmt.Sprintf("%s, %s, %s", data.Location.Name, data.Location.Region, data.Location.Country),
		Forecast: data.Forecast.ForecastDay[:1],
	}, nil
}

var _ Service = (*Client)(nil)
