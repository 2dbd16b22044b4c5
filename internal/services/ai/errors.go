package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrRateLimited indicates the provider asked us to slow down
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates the account is out of credit or quota
	ErrQuotaExceeded = errors.New("quota exceeded")
)

const (
	defaultRateLimitWait = 60 * time.Second
	defaultQuotaWait     = time.Hour
)

// APIError is a throttling failure from the provider.
// Quota errors are permanent until someone tops up the account.
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Is lets callers match ErrRateLimited and ErrQuotaExceeded with errors.Is
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.IsPermanent
	case ErrRateLimited:
		return !e.IsPermanent
	}
	return false
}

// IsRateLimitError reports whether err is a temporary throttling failure
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsQuotaError reports whether err is a quota or billing failure
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// ExtractAPIError classifies a provider error as a throttling failure, or returns nil.
// OpenRouter reports exhausted credit as 402, OpenAI as 429 with code insufficient_quota.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var existing *APIError
	if errors.As(err, &existing) {
		return existing
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		return fromSDKError(sdkErr)
	}

	// Errors that lost their type on the way here still carry the status in the text
	msg := err.Error()
	if !strings.Contains(msg, "429") {
		return nil
	}
	apiErr := &APIError{StatusCode: http.StatusTooManyRequests, Message: msg, Type: "rate_limit_error"}
	if body, ok := embeddedJSON(msg); ok {
		var detail struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		}
		if json.Unmarshal([]byte(body), &detail) == nil {
			apiErr.Message, apiErr.Type, apiErr.Code = detail.Message, detail.Type, detail.Code
		}
	}
	apiErr.IsPermanent = isQuotaCode(apiErr.Code)
	apiErr.RetryAfter = defaultWait(apiErr.IsPermanent)
	return apiErr
}

func fromSDKError(sdkErr *openai.Error) *APIError {
	switch sdkErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
	default:
		return nil
	}

	apiErr := &APIError{
		Message:     sdkErr.Message,
		Type:        sdkErr.Type,
		Code:        sdkErr.Code,
		StatusCode:  sdkErr.StatusCode,
		IsPermanent: sdkErr.StatusCode == http.StatusPaymentRequired || isQuotaCode(sdkErr.Code),
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(sdkErr.StatusCode)
	}
	if sdkErr.Response != nil {
		if d, ok := parseRetryAfter(sdkErr.Response.Header.Get("Retry-After")); ok {
			apiErr.RetryAfter = &d
		}
	}
	if apiErr.RetryAfter == nil {
		apiErr.RetryAfter = defaultWait(apiErr.IsPermanent)
	}
	return apiErr
}

func isQuotaCode(code string) bool {
	return code == "insufficient_quota" || code == "billing_hard_limit_reached"
}

func defaultWait(permanent bool) *time.Duration {
	d := defaultRateLimitWait
	if permanent {
		d = defaultQuotaWait
	}
	return &d
}

// parseRetryAfter reads a Retry-After header given in seconds
func parseRetryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func embeddedJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// GetRetryDelay is the wait before retry number attempt after err.
// Quota errors back off from an hour, rate limits from a minute, everything else from five seconds.
func GetRetryDelay(err error, attempt int) time.Duration {
	switch {
	case IsQuotaError(err):
		return backoff(defaultQuotaWait, 24*time.Hour, attempt)
	case IsRateLimitError(err):
		delay := backoff(defaultRateLimitWait, 15*time.Minute, attempt)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	default:
		return backoff(5*time.Second, 5*time.Minute, attempt)
	}
}

// backoff doubles base per attempt up to limit
func backoff(base, limit time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}
