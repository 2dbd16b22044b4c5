package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/services/geocode"
)

// GeocodeHandler serves place lookups
type GeocodeHandler struct {
	geocoder geocode.Service
	logger   *zap.Logger
}

// NewGeocodeHandler creates a new geocode handler
func NewGeocodeHandler(geocoder geocode.Service, logger *zap.Logger) *GeocodeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

// RegisterRoutes registers geocode routes on the given router
// The router should already have the /geocode prefix
func (h *GeocodeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/reverse", h.Reverse).Methods("GET")
	r.HandleFunc("/search", h.Search).Methods("GET")
}

// Reverse resolves ?lat&lng to a labelled place
func (h *GeocodeHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoords(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	place, err := h.geocoder.Reverse(r.Context(), lat, lng)
	if err != nil {
		h.respondGeocodeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, place)
}

// Search resolves ?q to candidate places
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if len(q) > MaxLocationLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "q is too long")
		return
	}
	places, err := h.geocoder.Search(r.Context(), q)
	if err != nil {
		h.respondGeocodeError(w, err)
		return
	}
	if places == nil {
		places = []geocode.Place{}
	}
	respondJSON(w, http.StatusOK, places)
}

func (h *GeocodeHandler) respondGeocodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geocode.ErrInvalidCoordinates), errors.Is(err, geocode.ErrEmptyQuery):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Warn("geocode_lookup_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Geocoding lookup failed")
	}
}
