package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/models"
)

const (
	// DefaultBaseURL is the public Nominatim endpoint
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies the service to Nominatim, which rejects anonymous clients
	DefaultUserAgent = "tripflow-planner/1.0"
	// DefaultSearchLimit caps the number of search results
	DefaultSearchLimit = 5
	// UnknownLocation is the label used when a place has neither a name nor a display name
	UnknownLocation = "Unknown location"
)

var (
	// ErrInvalidCoordinates is returned for out-of-range latitude/longitude
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrEmptyQuery is returned when a search query is blank
	ErrEmptyQuery = errors.New("empty search query")
	// ErrUpstream is returned when Nominatim answers with an error
	ErrUpstream = errors.New("geocoder error")
)

// Place is a resolved location
type Place struct {
	Label       string        `json:"label"`
	DisplayName string        `json:"display_name,omitempty"`
	Coords      models.Coords `json:"coords"`
}

// Cache stores geocoder answers. *cache.RedisCache satisfies it.
type Cache interface {
	GetGeocode(ctx context.Context, key string, dest any) (bool, error)
	SetGeocode(ctx context.Context, key string, value any) error
}

// Service resolves coordinates to places and back
type Service interface {
	Reverse(ctx context.Context, lat, lng float64) (*Place, error)
	Search(ctx context.Context, query string) ([]Place, error)
}

// NominatimClient talks to an OpenStreetMap Nominatim server
type NominatimClient struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
	Limit     int
	Cache     Cache
	logger    *zap.Logger
}

// NewNominatimClient creates a client. cache may be nil.
func NewNominatimClient(baseURL, userAgent string, cache Cache, logger *zap.Logger) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NominatimClient{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Limit:     DefaultSearchLimit,
		Cache:     cache,
		logger:    logger,
	}
}

type nominatimPlace struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
}

// Reverse resolves coordinates to a labelled place
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, ErrInvalidCoordinates
	}

	// Nearby points share a key; the answer always echoes the caller's coordinates
	key := fmt.Sprintf("reverse:%.5f,%.5f", lat, lng)
	var cached Place
	if c.cacheGet(ctx, key, &cached) {
		cached.Coords = models.Coords{Lat: lat, Lng: lng}
		return &cached, nil
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var raw nominatimPlace
	if err := c.get(ctx, "/reverse", q, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, raw.Error)
	}

	place := toPlace(raw)
	place.Coords = models.Coords{Lat: lat, Lng: lng}
	c.cacheSet(ctx, key, place)
	return &place, nil
}

// Search resolves a free-text query to candidate places
func (c *NominatimClient) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	key := "search:" + strings.ToLower(query)
	var cached []Place
	if c.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := c.get(ctx, "/search", q, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		places = append(places, toPlace(r))
	}
	c.cacheSet(ctx, key, places)
	return places, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, q url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call geocoder: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	return nil
}

func (c *NominatimClient) cacheGet(ctx context.Context, key string, dest any) bool {
	if c.Cache == nil {
		return false
	}
	ok, err := c.Cache.GetGeocode(ctx, key, dest)
	if err != nil {
		c.logger.Warn("geocode_cache_read_failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (c *NominatimClient) cacheSet(ctx context.Context, key string, value any) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.SetGeocode(ctx, key, value); err != nil {
		c.logger.Warn("geocode_cache_write_failed", zap.String("key", key), zap.Error(err))
	}
}

// toPlace picks name, then display_name, then the unknown placeholder as the label
func toPlace(r nominatimPlace) Place {
	label := strings.TrimSpace(r.Name)
	if label == "" {
		label = strings.TrimSpace(r.DisplayName)
	}
	if label == "" {
		label = UnknownLocation
	}
	p := Place{Label: label, DisplayName: r.DisplayName}
	if lat, err := strconv.ParseFloat(r.Lat, 64); err == nil {
		p.Coords.Lat = lat
	}
	if lon, err := strconv.ParseFloat(r.Lon, 64); err == nil {
		p.Coords.Lng = lon
	}
	return p
}

var _ Service = (*NominatimClient)(nil)
