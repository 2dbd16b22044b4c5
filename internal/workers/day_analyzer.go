package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/database"
	logpkg "github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/services/ai"
	"github.com/benvon/tripflow/internal/services/itinerary"
)

// DefaultMaxHoldBack is the longest a worker waits on a job that is not yet due
// before handing it back to the queue
const DefaultMaxHoldBack = 30 * time.Second

// JobProcessor runs one job
type JobProcessor func(ctx context.Context, job *queue.Job) error

// DayAnalysisService produces and caches a day's analysis. *itinerary.DayService satisfies it.
type DayAnalysisService interface {
	Analyze(ctx context.Context, scope models.Scope, date string) (*itinerary.Analysis, error)
}

// DayAnalyzer consumes day analysis jobs
type DayAnalyzer struct {
	service     DayAnalysisService
	requeue     queue.Enqueuer
	logger      *zap.Logger
	registry    map[queue.JobType]JobProcessor
	maxHoldBack time.Duration
}

// NewDayAnalyzer creates a worker and registers the day_analysis processor.
// requeue publishes delayed retries; without it failed jobs go straight to the DLQ.
func NewDayAnalyzer(service DayAnalysisService, requeue queue.Enqueuer, logger *zap.Logger) *DayAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &DayAnalyzer{
		service:     service,
		requeue:     requeue,
		logger:      logger,
		registry:    make(map[queue.JobType]JobProcessor),
		maxHoldBack: DefaultMaxHoldBack,
	}
	a.RegisterProcessor(queue.JobTypeDayAnalysis, a.ProcessDayAnalysisJob)
	return a
}

// RegisterProcessor registers a processor for a job type
func (a *DayAnalyzer) RegisterProcessor(typ queue.JobType, proc JobProcessor) {
	a.registry[typ] = proc
}

// ProcessDayAnalysisJob analyzes the job's day. The result lands in the analysis cache.
func (a *DayAnalyzer) ProcessDayAnalysisJob(ctx context.Context, job *queue.Job) error {
	start := time.Now()
	analysis, err := a.service.Analyze(ctx, job.Scope(), job.Date)
	if err != nil {
		return err
	}
	a.logger.Info("day_analysis_job_completed",
		zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
		zap.String("user_id", logpkg.SanitizeID(job.UserID.String())),
		zap.String("date", job.Date),
		zap.Bool("cached", analysis.Cached),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// ProcessJob runs the processor registered for the message's job type and settles the message
func (a *DayAnalyzer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	jobID := logpkg.SanitizeID(job.ID.String())

	if job.IsExpired() {
		a.logger.Info("job_expired", zap.String("job_id", jobID), zap.Timep("not_after", job.NotAfter))
		return ack(msg)
	}
	if !job.ShouldProcess() {
		return a.holdBack(ctx, msg, job)
	}

	proc, ok := a.registry[job.Type]
	if !ok {
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", jobID),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := proc(ctx, job); err != nil {
		return a.handleJobError(ctx, msg, job, err)
	}
	return ack(msg)
}

// holdBack waits for a job whose NotBefore is near. Jobs further out are handed back
// to the queue after maxHoldBack so a broker without delayed delivery does not spin.
func (a *DayAnalyzer) holdBack(ctx context.Context, msg queue.MessageInterface, job *queue.Job) error {
	wait := time.Until(*job.NotBefore)
	if wait > a.maxHoldBack && a.requeue != nil {
		a.logger.Debug("job_not_ready",
			zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
			zap.Time("not_before", *job.NotBefore),
		)
		if err := sleepCtx(ctx, a.maxHoldBack); err != nil {
			return nackRequeue(msg, err)
		}
		if err := a.requeue.Enqueue(ctx, job); err != nil {
			return nackRequeue(msg, fmt.Errorf("failed to requeue deferred job: %w", err))
		}
		return ack(msg)
	}
	if err := sleepCtx(ctx, wait); err != nil {
		return nackRequeue(msg, err)
	}
	return a.ProcessJob(ctx, msg)
}

// handleJobError settles a failed job. Days deleted since the job was queued are dropped,
// retryable failures are re-published with backoff, everything else goes to the DLQ.
func (a *DayAnalyzer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	jobID := logpkg.SanitizeID(job.ID.String())

	if errors.Is(err, database.ErrNotFound) {
		a.logger.Info("day_analysis_job_dropped",
			zap.String("job_id", jobID),
			zap.String("date", job.Date),
			zap.String("reason", "day no longer exists"),
		)
		return ack(msg)
	}

	retryable := !errors.Is(err, itinerary.ErrAIUnavailable) && !errors.Is(err, queue.ErrInvalidJob)
	if retryable && job.CanRetry() && a.requeue != nil {
		delay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(delay)
		retry := *job
		retry.IncrementRetry()
		retry.NotBefore = &notBefore

		if enqueueErr := a.requeue.Enqueue(ctx, &retry); enqueueErr != nil {
			a.logger.Error("failed_to_requeue_job",
				zap.String("job_id", jobID),
				zap.String("error", logpkg.SanitizeError(enqueueErr)),
			)
			return nackRequeue(msg, fmt.Errorf("day analysis failed, requeue failed: %w", enqueueErr))
		}
		a.logger.Warn("day_analysis_job_retry_scheduled",
			zap.String("job_id", jobID),
			zap.Int("attempt", retry.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Duration("delay", delay),
			zap.Bool("rate_limited", ai.IsRateLimitError(err)),
			zap.Bool("quota_exceeded", ai.IsQuotaError(err)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			a.logger.Warn("failed_to_ack_retried_job", zap.String("job_id", jobID), zap.Error(ackErr))
		}
		return fmt.Errorf("day analysis failed (retry scheduled): %w", err)
	}

	a.logger.Error("day_analysis_job_failed",
		zap.String("job_id", jobID),
		zap.String("user_id", logpkg.SanitizeID(job.UserID.String())),
		zap.Int("retries", job.RetryCount),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		a.logger.Warn("failed_to_nack_job_to_dlq", zap.String("job_id", jobID), zap.Error(nackErr))
	}
	return fmt.Errorf("day analysis failed: %w", err)
}

func ack(msg queue.MessageInterface) error {
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func nackRequeue(msg queue.MessageInterface, cause error) error {
	if err := msg.Nack(true); err != nil {
		return fmt.Errorf("%w (nack failed: %v)", cause, err)
	}
	return cause
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
