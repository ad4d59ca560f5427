package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/assessment"
	"pkbm/internal/domain/audit"
	"pkbm/internal/domain/auth"
	"pkbm/internal/domain/reportcard"
	"pkbm/internal/platform/config"
	"pkbm/internal/platform/crypto"
	"pkbm/internal/platform/db"
	"pkbm/internal/platform/events"
	"pkbm/internal/platform/jobs"
	"pkbm/internal/platform/metrics"
	"pkbm/internal/platform/storage"
	"pkbm/internal/transport/http/api"
	academichandler "pkbm/internal/transport/http/handlers/academic"
	assessmenthandler "pkbm/internal/transport/http/handlers/assessment"
	audithandler "pkbm/internal/transport/http/handlers/audit"
	authhandler "pkbm/internal/transport/http/handlers/auth"
	reportcardhandler "pkbm/internal/transport/http/handlers/reportcard"
	"pkbm/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New connects to the database, applies migrations and seed data when enabled
// and assembles the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	app := &App{Config: cfg, DB: pool, Metrics: metrics.New()}
	app.Router = app.routes(sealer)
	return app, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) routes(sealer *crypto.Sealer) http.Handler {
	cfg := a.Config
	pool := a.DB
	collector := a.Metrics

	bus := events.NewBus()
	bus.Subscribe(events.TopicAssessmentSaved, func(context.Context, events.Event) {
		collector.AssessmentSaved()
	})

	media := storage.NewDisk(cfg.StorageDir, cfg.MaxUploadBytes)
	authService := auth.NewService(auth.NewStore(pool))
	auditService := audit.New(pool)
	academicService := academic.NewService(academic.NewStore(pool), bus, academic.Options{
		ClassroomTTL: cfg.ClassroomCacheTTL,
		ObjectiveTTL: cfg.ObjectiveCacheTTL,
	})
	assessmentStore := assessment.NewStore(pool)
	assessmentService := assessment.NewService(assessmentStore, academicService, bus)
	jobService := jobs.New(pool)
	reportCardService := reportcard.NewService(reportcard.Deps{
		Store:    reportcard.NewStore(pool),
		Inputs:   assessmentStore,
		Academic: academicService,
		Events:   bus,
		Jobs:     jobService,
		Metrics:  collector,
		Documents: &reportcard.Documents{
			Media:   media,
			Sealer:  sealer,
			Archive: cfg.ArchiveReportCards,
		},
		SchoolName: cfg.SchoolName,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authService))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService, cfg.JWTSecret, cfg.AccessTokenTTL).RegisterRoutes(r)
		academichandler.NewHandler(academicService, media, auditService).RegisterRoutes(r)
		assessmentHandler := assessmenthandler.NewHandler(assessmentService, auditService)
		assessmentHandler.SaveLimit = cfg.RateLimitPerMinute
		assessmentHandler.RegisterRoutes(r)
		reportcardhandler.NewHandler(
			reportCardService,
			jobService,
			middleware.NewIdempotencyStore(pool),
			auditService,
		).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)
	})

	return router
}

// Run serves until SIGINT or SIGTERM and then drains in-flight requests.
func Run() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("PKBM server listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}
	}
}
