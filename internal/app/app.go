package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"schedule-service/internal/account"
	"schedule-service/internal/config"
	"schedule-service/internal/db"
	"schedule-service/internal/health"
	"schedule-service/internal/logger"
	"schedule-service/internal/messaging"
	"schedule-service/internal/metrics"
	"schedule-service/internal/middleware"
	"schedule-service/internal/policy"
	"schedule-service/internal/schedule"
	"schedule-service/internal/sweeper"
	"schedule-service/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	database  *bun.DB
	telemetry *telemetry.Telemetry
	publisher schedule.Publisher
	sweeper   *sweeper.Sweeper
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	ctx := context.Background()

	tel, err := telemetry.Init(ctx, ServiceName, Version, cfg.Env, cfg.Metrics.OTLPEndpoint, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	app.telemetry = tel
	appMetrics := tel.Metrics

	database := db.New(cfg.Database)
	app.database = database

	if err := appMetrics.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}

	if err := db.RunMigrations(ctx, database,
		(*account.Teacher)(nil),
		(*account.Student)(nil),
		(*schedule.Class)(nil),
	); err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	// Apply CORS middleware globally
	app.router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler(database)
	healthHandler.RegisterRoutes(app.router)

	// Event publisher. The service runs fine without one; class changes
	// are then only visible through the API.
	app.publisher = newPublisher(cfg.Events, slogLogger, appMetrics)

	// Auth setup
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	gate := policy.NewGate(cfg.Registration.TeacherSecret)
	tokenTTL := time.Duration(cfg.Auth.TokenTTLMin) * time.Minute
	tokens := account.NewTokenManager(cfg.Auth.JWTSecret, tokenTTL)

	accountRepo := account.NewRepository(database, appMetrics)
	accountService := account.NewService(accountRepo, gate, appMetrics, cfg.Registration.TeacherEmailSuffix)
	accountHandler := account.NewHandler(accountService, tokens, slogLogger)
	accountHandler.RegisterRoutes(app.router)

	// Class endpoints (auth required)
	scheduleRepo := schedule.NewRepository(database, appMetrics)
	scheduleService := schedule.NewService(scheduleRepo, app.publisher, appMetrics, slogLogger)
	scheduleHandler := schedule.NewHandler(scheduleService, accountService, slogLogger)

	app.router.Route("/api", func(r chi.Router) {
		r.Use(account.Middleware(tokens, slogLogger))
		scheduleHandler.RegisterRoutes(r)
	})

	// Expiry sweeper
	interval := time.Duration(cfg.Sweeper.IntervalMin) * time.Minute
	sw, err := sweeper.New(scheduleRepo, app.publisher, interval, appMetrics, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize expiry sweeper: %v", err)
	}
	app.sweeper = sw

	slogLogger.Info("application initialized successfully")

	return app
}

func newPublisher(cfg config.EventsConfig, logger *slog.Logger, m *metrics.Metrics) schedule.Publisher {
	switch cfg.Driver {
	case "nats":
		producer, err := messaging.NewNATSProducer(cfg.NATS.URL, cfg.NATS.Subject, logger, m)
		if err != nil {
			logger.Warn("failed to initialize NATS producer", "error", err)
			return nil
		}
		return producer
	case "kafka":
		producer, err := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger, m)
		if err != nil {
			logger.Warn("failed to initialize kafka producer", "error", err)
			return nil
		}
		return producer
	case "", "none":
		return nil
	default:
		logger.Warn("unknown events driver, events disabled", "driver", cfg.Driver)
		return nil
	}
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.sweeper.Start()

	a.logger.Info("server starting", "port", a.config.Server.Port)
	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for an in-flight sweep to
// finish before releasing the publisher and the database. Everything is
// bounded by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	if err := a.server.Shutdown(ctx); err != nil {
		return err
	}

	if err := a.sweeper.Stop(ctx); err != nil {
		a.logger.Warn("expiry sweeper did not stop cleanly", "error", err)
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close event publisher", "error", err)
		}
	}

	db.Close(a.database)

	// Last, so the final counter values still get flushed.
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		a.logger.Warn("failed to shut down metrics exporter", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
