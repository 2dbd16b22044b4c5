package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tripflow/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	analysisKeyPrefix = "analysis:"
	geocodeKeyPrefix  = "geocode:"

	// DefaultAnalysisTTL bounds how long an analysis survives without edits
	DefaultAnalysisTTL = 24 * time.Hour
	// DefaultGeocodeTTL bounds how long a geocoding answer is reused
	DefaultGeocodeTTL = 7 * 24 * time.Hour
)

// NewRedisClient connects to redisURL and verifies the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisCache stores day analyses and geocoding lookups in Redis
type RedisCache struct {
	client      *redis.Client
	analysisTTL time.Duration
	geocodeTTL  time.Duration
}

// New creates a cache over client. Non-positive TTLs fall back to the defaults.
func New(client *redis.Client, analysisTTL, geocodeTTL time.Duration) *RedisCache {
	if analysisTTL <= 0 {
		analysisTTL = DefaultAnalysisTTL
	}
	if geocodeTTL <= 0 {
		geocodeTTL = DefaultGeocodeTTL
	}
	return &RedisCache{
		client:      client,
		analysisTTL: analysisTTL,
		geocodeTTL:  geocodeTTL,
	}
}

// AnalysisKey is the cache key of a day's analysis
func AnalysisKey(scope models.Scope, date string) string {
	return analysisKeyPrefix + scope.Key() + ":" + date
}

// analysisEntry ties cached text to the day content it was computed from
type analysisEntry struct {
	Version string `json:"version"`
	Text    string `json:"text"`
}

// GetAnalysis returns the cached analysis of day. ok is false on a miss, and also when the
// entry was computed for different day content.
func (c *RedisCache) GetAnalysis(ctx context.Context, day *models.DayPlan) (string, bool, error) {
	data, err := c.client.Get(ctx, AnalysisKey(day.Scope(), day.Date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get analysis: %w", err)
	}
	var entry analysisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false, nil
	}
	if entry.Version != day.ContentVersion() {
		return "", false, nil
	}
	return entry.Text, true, nil
}

// SetAnalysis caches the analysis of day as it is now, until it changes or the TTL expires
func (c *RedisCache) SetAnalysis(ctx context.Context, day *models.DayPlan, analysis string) error {
	data, err := json.Marshal(analysisEntry{Version: day.ContentVersion(), Text: analysis})
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := c.client.Set(ctx, AnalysisKey(day.Scope(), day.Date), data, c.analysisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set analysis: %w", err)
	}
	return nil
}

// InvalidateAnalysis drops the cached analysis of day
func (c *RedisCache) InvalidateAnalysis(ctx context.Context, day *models.DayPlan) error {
	if err := c.client.Del(ctx, AnalysisKey(day.Scope(), day.Date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analysis: %w", err)
	}
	return nil
}

// HydrateAnalysis copies any cached analysis onto day
func (c *RedisCache) HydrateAnalysis(ctx context.Context, day *models.DayPlan) error {
	text, ok, err := c.GetAnalysis(ctx, day)
	if err != nil {
		return err
	}
	if !ok {
		day.ClearAnalysis()
		return nil
	}
	day.AIAnalysisResult = &text
	day.AIHasAnalyzed = true
	return nil
}

// GetGeocode decodes a cached geocoding answer into dest. ok is false on a miss.
func (c *RedisCache) GetGeocode(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, geocodeKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get geocode entry: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode geocode entry: %w", err)
	}
	return true, nil
}

// SetGeocode caches a geocoding answer
func (c *RedisCache) SetGeocode(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode geocode entry: %w", err)
	}
	if err := c.client.Set(ctx, geocodeKeyPrefix+key, data, c.geocodeTTL).Err(); err != nil {
		return fmt.Errorf("failed to set geocode entry: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
