package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout leaves room for a synchronous AI call
const DefaultRequestTimeout = 90 * time.Second

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout bounds handler run time. The handler's context is cancelled when the limit passes
// and the client receives a JSON 503.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
