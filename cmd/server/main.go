package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/cache"
	"github.com/benvon/tripflow/internal/config"
	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/handlers"
	"github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/middleware"
	"github.com/benvon/tripflow/internal/queue"
	"github.com/benvon/tripflow/internal/services/ai"
	"github.com/benvon/tripflow/internal/services/geocode"
	"github.com/benvon/tripflow/internal/services/itinerary"
	"github.com/benvon/tripflow/internal/services/oidc"
	"github.com/benvon/tripflow/internal/services/weather"
	"github.com/benvon/tripflow/internal/telemetry"
)

const serviceName = "tripflow-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
				ServiceName:    serviceName,
				ServiceVersion: handlers.Version,
				Endpoint:       cfg.OTELEndpoint,
				SampleRatio:    cfg.OTELSampleRatio,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := database.Migrate(context.Background(), db); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")
	redisCache := cache.New(redisClient, cfg.AnalysisCacheTTL, cfg.GeocodeCacheTTL)

	jobQueue, err := queue.ConnectWithRetry(context.Background(), queue.DialRabbitMQ(cfg.RabbitMQURL, zapLogger), queue.DefaultRetryPolicy, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	zapLogger.Info("connected_to_rabbitmq")
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	dayRepo := database.NewDayPlanRepository(db)
	tripRepo := database.NewTripRepository(db)
	userRepo := database.NewUserRepository(db)

	// AI provider is optional; without it analysis and autofill answer 503
	var aiProvider ai.Provider
	if p, err := ai.NewFromSettings(aiSettings(cfg, debugMode), zapLogger); err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_ai_features_disabled", zap.Error(err))
	} else {
		aiProvider = p
		zapLogger.Info("initialized_ai_provider",
			zap.String("provider", cfg.AIProvider),
			zap.String("api_key", ai.SanitizeAPIKey(cfg.AIKey)),
		)
	}

	// Services
	dayService := itinerary.NewDayService(dayRepo, tripRepo, redisCache, aiProvider, jobQueue, zapLogger)
	tripService := itinerary.NewTripService(tripRepo, dayRepo, redisCache, zapLogger)
	oidcProvider := oidc.NewProvider(cfg.OIDC())
	authenticator := oidc.NewAuthenticator(oidcProvider, oidc.NewVerifier(oidc.NewJWKSManager(), cfg.OIDC().Issuer, cfg.OIDCAudience))
	geocoder := geocode.NewNominatimClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, redisCache, zapLogger)
	weatherClient := weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		zapLogger.Warn("weather_api_key_not_configured")
	}

	// Handlers
	healthChecker := handlers.NewHealthChecker()
	healthChecker.AddCheck("database", db.HealthCheck)
	healthChecker.AddCheck("redis", redisCache.Ping)
	healthChecker.AddCheck("rabbitmq", jobQueue.HealthCheck)
	authHandler := handlers.NewAuthHandler(oidcProvider, zapLogger)
	tripHandler := handlers.NewTripHandler(tripService, zapLogger)
	dayHandler := handlers.NewDayHandler(dayService, zapLogger)
	weatherHandler := handlers.NewWeatherHandler(weatherClient, zapLogger)
	geocodeHandler := handlers.NewGeocodeHandler(geocoder, zapLogger)
	openAPIHandler := handlers.NewOpenAPIHandler()

	generalLimit, err := middleware.RateLimit(redisClient, cfg.RateLimitGeneral, "general", zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	aiLimit, err := middleware.RateLimit(redisClient, cfg.RateLimitAI, "ai", zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_rate_limiter", zap.Error(err))
	}
	authMW := middleware.Auth(authenticator, userRepo, zapLogger)
	if !cfg.OIDCEnabled() {
		zapLogger.Warn("oidc_not_configured_all_protected_routes_will_reject")
	}

	r := mux.NewRouter()

	// Middleware registered first wraps outermost
	zapLogger.Info("setting_up_middleware")
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins, zapLogger))
	r.Use(middleware.MaxRequestSize(cfg.MaxRequestBytes))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	healthChecker.RegisterRoutes(r)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	loginRouter := apiRouter.PathPrefix("/auth").Subrouter()
	loginRouter.Use(generalLimit)
	authHandler.RegisterPublicRoutes(loginRouter)

	// Protected routes
	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(authMW)

	// AI routes carry their own, stricter limit and must be matched before the general day routes
	aiRouter := protected.NewRoute().Subrouter()
	aiRouter.Use(aiLimit)
	dayHandler.RegisterAIRoutes(aiRouter)

	limited := protected.NewRoute().Subrouter()
	limited.Use(generalLimit)
	authHandler.RegisterRoutes(limited.PathPrefix("/auth").Subrouter())
	dayHandler.RegisterRoutes(limited)
	tripHandler.RegisterRoutes(limited.PathPrefix("/trips").Subrouter())
	weatherHandler.RegisterRoutes(limited.PathPrefix("/weather").Subrouter())
	geocodeHandler.RegisterRoutes(limited.PathPrefix("/geocode").Subrouter())

	// Preflight requests are answered by the CORS middleware; this keeps mux from returning 405
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", cfg.DLQGCInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// aiSettings maps configuration onto provider settings
func aiSettings(cfg *config.Config, debugMode bool) ai.Settings {
	return ai.Settings{
		Provider:      cfg.AIProvider,
		APIKey:        cfg.AIKey,
		BaseURL:       cfg.AIBaseURL,
		Model:         cfg.AIModel,
		AutofillModel: cfg.AIAutofillModel,
		Debug:         debugMode,
	}
}
