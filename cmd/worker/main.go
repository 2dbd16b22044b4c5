package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/cache"
	"github.com/benvon/tripflow/internal/config"
	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/services/ai"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	redisCache := cache.New(redisClient, cfg.AnalysisCacheTTL, cfg.GeocodeCacheTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobQueue, err := queue.ConnectWithRetry(ctx, queue.DialRabbitMQ(cfg.RabbitMQURL, zapLogger), queue.DefaultRetryPolicy, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	// A worker without a provider would dead-letter every job
	aiProvider, err := ai.NewFromSettings(ai.Settings{
		Provider:      cfg.AIProvider,
		APIKey:        cfg.AIKey,
		BaseURL:       cfg.AIBaseURL,
		Model:         cfg.AIModel,
		AutofillModel: cfg.AIAutofillModel,
		Debug:         debugMode,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.Error(err))
	}
	zapLogger.Info("initialized_ai_provider",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
		zap.String("api_key", ai.SanitizeAPIKey(cfg.AIKey)),
	)

	// The worker never enqueues analysis itself; retries go through the analyzer's requeue
	dayService := itinerary.NewDayService(
		database.NewDayPlanRepository(db),
		database.NewTripRepository(db),
		redisCache,
		aiProvider,
		nil,
		zapLogger,
	)
	analyzer := workers.NewDayAnalyzer(dayService, jobQueue, zapLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started_consuming")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := analyzer.ProcessJob(ctx, msg); err != nil {
					fields := []zap.Field{zap.Error(err)}
					if job := msg.GetJob(); job != nil {
						fields = append(fields,
							zap.String("job_id", logger.SanitizeID(job.ID.String())),
							zap.String("job_type", string(job.Type)),
						)
					}
					zapLogger.Error("failed_to_process_job", fields...)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received_stopping_worker")
	cancel()
	zapLogger.Info("worker_stopped")
}
