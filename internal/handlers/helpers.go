package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/database"
	logpkg "github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/planner"
	"github.com/benvon/tripflow/internal/services/ai"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/validation"
)

// maxErrorMessageLength bounds messages echoed to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage removes internal details from error messages
func sanitizeErrorMessage(message string) string {
	runes := []rune(message)
	if len(runes) > maxErrorMessageLength {
		return string(runes[:maxErrorMessageLength]) + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorWithData(w, status, errorType, message, nil)
}

// respondJSONErrorWithData sends an error response that also carries a payload,
// e.g. the preview of a reschedule that needs confirmation
func respondJSONErrorWithData(w http.ResponseWriter, status int, errorType, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if data != nil {
		response["data"] = data
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON decodes and validates a request body into dst. It answers the
// request itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body too large")
		case errors.Is(err, io.EOF):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Request body is required")
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		}
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FieldErrors(err))
		return false
	}
	return true
}

// parseCoords reads the lat/lng query parameters
func parseCoords(r *http.Request) (float64, float64, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return 0, 0, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return 0, 0, errors.New("lng must be a number")
	}
	return lat, lng, nil
}

// respondServiceError translates planner, persistence and collaborator errors
// into the JSON envelope
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, planner.ErrValidation):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", planner.RejectionReason(err))
	case errors.Is(err, itinerary.ErrInvalidInput), errors.Is(err, planner.ErrInvalidTimeRange):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Resource not found")
	case errors.Is(err, planner.ErrActivityNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Activity not found")
	case errors.Is(err, itinerary.ErrNoAnalysis):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Day has not been analyzed")
	case errors.Is(err, database.ErrDuplicateDay),
		errors.Is(err, database.ErrDuplicateTripName),
		errors.Is(err, planner.ErrDuplicateActivity),
		errors.Is(err, planner.ErrStaleEdit),
		errors.Is(err, planner.ErrConfirmationRequired):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, planner.ErrNothingAdded):
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "No activities could be added")
	case errors.Is(err, ai.ErrRateLimited), errors.Is(err, ai.ErrQuotaExceeded):
		w.Header().Set("Retry-After", strconv.Itoa(int(ai.GetRetryDelay(err, 0).Seconds())))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "AI provider is rate limited, try again later")
	case errors.Is(err, itinerary.ErrAIUnavailable), errors.Is(err, itinerary.ErrQueueUnavailable):
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case errors.Is(err, itinerary.ErrAIFailed):
		logger.Warn("ai_request_failed",
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI provider request failed")
	default:
		logger.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
