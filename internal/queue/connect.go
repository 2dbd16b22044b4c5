package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how long a process waits for the broker at startup
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy covers a broker container that starts after the app
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  10,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

// Delay returns the wait after the given zero-based failed attempt
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// DialFunc opens a queue connection
type DialFunc func() (JobQueue, error)

// ConnectWithRetry calls dial until it succeeds, the policy is exhausted or ctx ends
func ConnectWithRetry(ctx context.Context, dial DialFunc, policy RetryPolicy, logger *zap.Logger) (JobQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		q, err := dial()
		if err == nil {
			return q, nil
		}
		lastErr = err
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxAttempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("failed to connect to queue after %d attempts: %w", policy.MaxAttempts, lastErr)
}

// DialRabbitMQ returns a DialFunc for amqpURL
func DialRabbitMQ(amqpURL string, logger *zap.Logger) DialFunc {
	return func() (JobQueue, error) {
		q, err := NewRabbitMQQueue(amqpURL, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
}
