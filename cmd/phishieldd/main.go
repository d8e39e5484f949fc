package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AyushPandey510/Phis-Shield/internal/application/usecase"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/breach"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/cache"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/config"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/feedback"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/intel"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/messaging"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/ml"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/policy"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/redirect"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/tlsinspect"
	grpcpresentation "github.com/AyushPandey510/Phis-Shield/internal/presentation/grpc"
	"github.com/AyushPandey510/Phis-Shield/internal/presentation/rest"
	"github.com/AyushPandey510/Phis-Shield/pkg/auth"
	"github.com/AyushPandey510/Phis-Shield/pkg/kafka"
	"github.com/AyushPandey510/Phis-Shield/pkg/observability"
	"github.com/AyushPandey510/Phis-Shield/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	// Initialize structured logger via shared observability package.
	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slog.SetDefault(logger)

	logger.Info("starting phishield",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	// Initialize tracing.
	shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "phishield",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer shutdown(ctx)
	}

	// Initialize metrics. The assessment pipeline records into these
	// instruments on every request, so a broken exporter is fatal.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: "phishield",
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	engineMetrics, err := observability.NewEngineMetrics(meterProvider.Meter("phishield"))
	if err != nil {
		logger.Error("failed to create engine metrics", "error", err)
		os.Exit(1)
	}

	// Scoring policy. The watcher recompiles on file change; adapters built
	// below read the startup revision, so their knobs need a restart.
	policyStore, err := policy.NewStore(cfg.PolicyPath, logger)
	if err != nil {
		logger.Error("failed to load scoring policy", "error", err, "path", cfg.PolicyPath)
		os.Exit(1)
	}
	go func() {
		if err := policyStore.Watch(ctx); err != nil {
			logger.Warn("policy watcher stopped", "error", err)
		}
	}()
	snap := policyStore.Current()
	pol := snap.Policy

	// Assessment cache.
	db, err := cache.Open(cache.Config{
		Path:     cfg.CachePath,
		InMemory: cfg.CacheInMemory,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to open assessment cache", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	assessmentCache := cache.NewStore(db, func(class port.CacheClass) time.Duration {
		return policyStore.Current().TTLFor(class)
	})

	// Readiness checks, extended below as backends come up.
	checks := map[string]rest.CheckFunc{
		"cache": func(ctx context.Context) error {
			if db.IsClosed() {
				return errors.New("cache closed")
			}
			return nil
		},
		"policy": func(ctx context.Context) error {
			if policyStore.Current() == nil {
				return errors.New("no policy loaded")
			}
			return nil
		},
	}

	// Feedback persistence: Postgres when a host is configured, otherwise
	// an append-only JSONL file.
	var feedbackStore port.FeedbackStore
	if cfg.PostgresEnabled() {
		pgCfg := postgres.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}

		if err := postgres.RunMigrations(pgCfg.DSN(), cfg.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := postgres.NewPool(dbCtx, pgCfg)
		dbCancel()
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		feedbackStore = feedback.NewPostgresStore(pool)
		checks["postgres"] = func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, pool)
		}
		logger.Info("feedback persistence using postgres", "host", cfg.DBHost, "database", cfg.DBName)
	} else {
		jsonlStore, err := feedback.NewJSONLStore(cfg.FeedbackFilePath)
		if err != nil {
			logger.Error("failed to open feedback file", "error", err, "path", cfg.FeedbackFilePath)
			os.Exit(1)
		}
		defer jsonlStore.Close()

		feedbackStore = jsonlStore
		logger.Info("feedback persistence using local file", "path", cfg.FeedbackFilePath)
	}

	// Domain events: Kafka when a broker is configured, otherwise log-only.
	var publisher port.EventPublisher
	if cfg.KafkaBroker != "" {
		producer := kafka.NewProducer(kafka.Config{
			Brokers: []string{cfg.KafkaBroker},
		})
		defer producer.Close()

		publisher = messaging.NewKafkaPublisher(producer, cfg.KafkaTopic, logger)
		logger.Info("publishing domain events to kafka", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	} else {
		publisher = messaging.NewLogPublisher(logger)
		logger.Info("no kafka broker configured, domain events are logged only")
	}

	// Classifier model. A missing model never blocks startup: the stub
	// keeps development runs scoring, the disabled client makes the
	// classifier report itself unavailable in production.
	var modelClient port.ModelClient
	onnxModel, err := ml.NewONNXModelClient(cfg.ModelPath, cfg.OnnxLibraryPath)
	switch {
	case err == nil:
		defer onnxModel.Close()
		modelClient = onnxModel
		logger.Info("loaded classifier model", "path", cfg.ModelPath)
	case cfg.Environment == "development":
		logger.Warn("classifier model unavailable, using stub probabilities", "error", err)
		modelClient = ml.NewStubModelClient(logger, 0.5)
	default:
		logger.Warn("classifier model unavailable, classifier disabled", "error", err)
		modelClient = ml.NewDisabledModelClient()
	}

	// Signal adapters, configured from the startup policy revision.
	inspector := tlsinspect.NewInspector(tlsinspect.Config{
		DialTimeout:  snap.SignalTimeout,
		InvalidFloor: pol.SSL.InvalidFloor,
	})
	tracer := redirect.NewTracer(redirect.Config{
		MaxHops:          pol.Redirects.MaxHops,
		Timeout:          snap.SignalTimeout,
		ShortenerDomains: pol.Heuristics.ShortenerDomains,
	})
	intelClient := intel.NewClient(intel.Config{
		BlocklistEndpoint:  cfg.BlocklistEndpoint,
		BlocklistAPIKey:    cfg.BlocklistAPIKey,
		ReputationEndpoint: cfg.ReputationEndpoint,
		ReputationAPIKey:   cfg.ReputationAPIKey,
		Timeout:            snap.SignalTimeout,
		RatePerMinute:      pol.Intel.RatePerMinute,
		Burst:              pol.Intel.Burst,
		MaliciousEngines:   pol.Intel.MaliciousEngines,
		SuspiciousEngines:  pol.Intel.SuspiciousEngines,
		BlocklistFloor:     pol.Intel.BlocklistFloor,
		MaliciousFloor:     pol.Intel.MaliciousFloor,
		SuspiciousFloor:    pol.Intel.SuspiciousFloor,
	})
	breachLookup := breach.NewLookup(breach.Config{
		CorpusPath:      cfg.BreachCorpusPath,
		DomainScore:     pol.Breach.DomainScore,
		CredentialScore: pol.Breach.CredentialScore,
	}, logger)

	signals := []port.SignalSource{inspector, tracer, intelClient, breachLookup}

	// Wire domain services.
	classifier := service.NewClassifierAdapter(service.NewFeatureExtractor(), modelClient)

	// Wire use cases.
	assessTarget := usecase.NewAssessTarget(policyStore, classifier, signals, assessmentCache, publisher, engineMetrics, logger)
	getAssessment := usecase.NewGetAssessment(assessmentCache, logger)
	recordFeedback := usecase.NewRecordFeedback(feedbackStore, logger)

	// JWT service for gRPC auth.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if cfg.Environment == "production" {
			logger.Error("JWT_SECRET is required in production")
			os.Exit(1)
		}
		jwtSecret = "phishield-dev-secret"
		logger.Warn("JWT_SECRET not set, using development secret")
	}
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:     jwtSecret,
		Issuer:     "phishield",
		Expiration: 24 * time.Hour,
	})
	if err != nil {
		logger.Error("failed to initialize JWT service", "error", err)
		os.Exit(1)
	}

	// gRPC server.
	grpcHandler := grpcpresentation.NewRiskServiceHandler(assessTarget, getAssessment, logger)
	grpcServer := grpcpresentation.NewServer(grpcHandler, cfg.GRPCAddress(), jwtService, cfg.TLSCertFile, cfg.TLSKeyFile, logger)

	// HTTP server: REST API, health checks, metrics.
	healthHandler := rest.NewHealthHandler(logger, checks)
	restHandler := rest.NewHandler(assessTarget, getAssessment, recordFeedback, logger)

	httpMux := http.NewServeMux()
	healthHandler.RegisterRoutes(httpMux)
	restHandler.RegisterRoutes(httpMux)
	httpMux.Handle("GET /metrics", metricsHandler)

	// Build middleware chain (applied in reverse order).
	var h http.Handler = httpMux
	h = rest.LoggingMiddleware(logger)(h)
	h = rest.PerClientRateLimitMiddleware(rest.NewPerClientRateLimiter(cfg.RateLimitRPS))(h)
	h = rest.APIKeyMiddleware(cfg.APIKey, []string{"/healthz", "/readyz", "/metrics"})(h)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("phishield started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"environment", cfg.Environment,
	)

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown.
	logger.Info("shutting down phishield")

	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("phishield stopped")
}
