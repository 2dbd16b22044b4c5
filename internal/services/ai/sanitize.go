package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/logger"
)

const (
	// MaxPreviewLength bounds prompt and response previews outside debug mode
	MaxPreviewLength = 200
	// MaxDebugPreviewLength bounds previews when LLM debug logging is on
	MaxDebugPreviewLength = 10000
	// RedactedValue replaces secrets in logs
	RedactedValue = "[REDACTED]"
)

type callInfoKey struct{}

// callInfo identifies the request and day an LLM call is made for
type callInfo struct {
	requestID string
	userID    string
	dayDate   string
}

// WithRequestContext annotates ctx with the identifiers logged alongside LLM calls
func WithRequestContext(ctx context.Context, requestID, userID, dayDate string) context.Context {
	return context.WithValue(ctx, callInfoKey{}, callInfo{requestID: requestID, userID: userID, dayDate: dayDate})
}

func callInfoFrom(ctx context.Context) callInfo {
	info, _ := ctx.Value(callInfoKey{}).(callInfo)
	return info
}

// fields renders the identifiers that are set
func (c callInfo) fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if c.requestID != "" {
		fields = append(fields, zap.String("request_id", logger.SanitizeID(c.requestID)))
	}
	if c.userID != "" {
		fields = append(fields, zap.String("user_id", logger.SanitizeID(c.userID)))
	}
	if c.dayDate != "" {
		fields = append(fields, zap.String("day_date", logger.SanitizeString(c.dayDate, logger.MaxIDLength)))
	}
	return fields
}

// SanitizeAPIKey keeps the first and last four characters of a key
func SanitizeAPIKey(apiKey string) string {
	switch {
	case apiKey == "":
		return ""
	case len(apiKey) <= 8:
		return RedactedValue
	default:
		return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
	}
}

// SanitizePrompt returns a log-safe preview of a prompt
func SanitizePrompt(prompt string, debug bool) string {
	return preview(prompt, debug)
}

// SanitizeResponse returns a log-safe preview of a model response
func SanitizeResponse(response string, debug bool) string {
	return preview(response, debug)
}

func preview(s string, debug bool) string {
	if debug {
		return logger.SanitizeString(s, MaxDebugPreviewLength)
	}
	return logger.SanitizeString(s, MaxPreviewLength)
}
