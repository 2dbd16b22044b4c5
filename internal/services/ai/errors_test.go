package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
)

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	withRetryAfter := &openai.Error{
		StatusCode: http.StatusTooManyRequests,
		Code:       "rate_limit_exceeded",
		Response:   &http.Response{Header: http.Header{"Retry-After": []string{"120"}}},
	}

	tests := []struct {
		name          string
		err           error
		wantNil       bool
		wantPermanent bool
		wantRetry     time.Duration
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "unrelated", err: errors.New("connection refused"), wantNil: true},
		{name: "sdk bad request", err: &openai.Error{StatusCode: http.StatusBadRequest}, wantNil: true},
		{name: "sdk rate limit", err: fmt.Errorf("wrapped: %w", &openai.Error{StatusCode: http.StatusTooManyRequests}), wantRetry: time.Minute},
		{name: "sdk retry-after header", err: withRetryAfter, wantRetry: 2 * time.Minute},
		{name: "sdk insufficient quota", err: &openai.Error{StatusCode: http.StatusTooManyRequests, Code: "insufficient_quota"}, wantPermanent: true, wantRetry: time.Hour},
		{name: "openrouter out of credit", err: &openai.Error{StatusCode: http.StatusPaymentRequired}, wantPermanent: true, wantRetry: time.Hour},
		{
			name:      "rate limit in message",
			err:       errors.New(`POST "x": 429 Too Many Requests {"message":"slow down","type":"requests","code":"rate_limit_exceeded"}`),
			wantRetry: time.Minute,
		},
		{
			name:          "quota in message",
			err:           errors.New(`POST "x": 429 Too Many Requests {"message":"out of credit","type":"insufficient_quota","code":"insufficient_quota"}`),
			wantPermanent: true,
			wantRetry:     time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			apiErr := ExtractAPIError(tt.err)
			if tt.wantNil {
				if apiErr != nil {
					t.Errorf("Expected nil, got %v", apiErr)
				}
				return
			}
			if apiErr == nil {
				t.Fatal("Expected API error")
			}
			if apiErr.IsPermanent != tt.wantPermanent {
				t.Errorf("IsPermanent = %v, want %v", apiErr.IsPermanent, tt.wantPermanent)
			}
			if apiErr.RetryAfter == nil || *apiErr.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %v, want %v", apiErr.RetryAfter, tt.wantRetry)
			}
		})
	}
}

func TestAPIErrorIs(t *testing.T) {
	t.Parallel()

	rate := fmt.Errorf("failed to analyze day: %w", &APIError{StatusCode: 429})
	quota := fmt.Errorf("failed to analyze day: %w", &APIError{StatusCode: 402, IsPermanent: true})

	if !errors.Is(rate, ErrRateLimited) || errors.Is(rate, ErrQuotaExceeded) {
		t.Error("Expected rate limit error to match only ErrRateLimited")
	}
	if !errors.Is(quota, ErrQuotaExceeded) || errors.Is(quota, ErrRateLimited) {
		t.Error("Expected quota error to match only ErrQuotaExceeded")
	}
	if !IsQuotaError(quota) || IsRateLimitError(quota) {
		t.Error("Expected quota classification")
	}
	if IsRateLimitError(errors.New("rate limit reached")) {
		t.Error("Expected plain errors not to be classified")
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	slowDown := 20 * time.Minute
	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{name: "generic first attempt", err: errors.New("boom"), attempt: 0, want: 5 * time.Second},
		{name: "generic second attempt", err: errors.New("boom"), attempt: 2, want: 20 * time.Second},
		{name: "generic capped", err: errors.New("boom"), attempt: 15, want: 5 * time.Minute},
		{name: "rate limit", err: &APIError{StatusCode: 429}, attempt: 1, want: 2 * time.Minute},
		{name: "rate limit capped", err: &APIError{StatusCode: 429}, attempt: 8, want: 15 * time.Minute},
		{name: "rate limit honours longer retry-after", err: &APIError{StatusCode: 429, RetryAfter: &slowDown}, attempt: 0, want: slowDown},
		{name: "quota", err: &APIError{StatusCode: 429, IsPermanent: true}, attempt: 0, want: time.Hour},
		{name: "quota capped", err: &APIError{StatusCode: 429, IsPermanent: true}, attempt: 9, want: 24 * time.Hour},
		{name: "negative attempt", err: errors.New("boom"), attempt: -3, want: 5 * time.Second},
		{name: "huge attempt", err: errors.New("boom"), attempt: 1 << 30, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("GetRetryDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}
