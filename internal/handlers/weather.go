package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/services/weather"
)

// WeatherHandler serves day forecasts
type WeatherHandler struct {
	weather weather.Service
	logger  *zap.Logger
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(service weather.Service, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{weather: service, logger: logger}
}

// RegisterRoutes registers weather routes on the given router
// The router should already have the /weather prefix
func (h *WeatherHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetForecast).Methods("GET")
}

// GetForecast returns the forecast for ?lat&lng on the optional ?date
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoords(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	date := r.URL.Query().Get("date")
	if date != "" {
		if date, err = itinerary.ParseDate(date); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
	}

	forecast, err := h.weather.Forecast(r.Context(), lat, lng, date)
	if err != nil {
		var upstream *weather.UpstreamError
		switch {
		case errors.Is(err, weather.ErrNotConfigured):
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Weather lookups are not configured")
		case errors.Is(err, weather.ErrNoForecast):
			respondJSONError(w, http.StatusNotFound, "Not Found", "No forecast available for this day")
		case errors.As(err, &upstream):
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", upstream.Message)
		default:
			h.logger.Error("weather_lookup_failed", zap.String("error", logpkg.SanitizeError(err)))
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Weather lookup failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, forecast)
}
