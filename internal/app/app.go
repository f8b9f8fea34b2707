// Package app wires configuration, storage, domain services and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/freshlane/grocer-orders/internal/auth"
	"github.com/freshlane/grocer-orders/internal/catalog"
	"github.com/freshlane/grocer-orders/internal/domain/carbon"
	"github.com/freshlane/grocer-orders/internal/domain/order"
	"github.com/freshlane/grocer-orders/internal/domain/schedule"
	"github.com/freshlane/grocer-orders/internal/events"
	"github.com/freshlane/grocer-orders/internal/handler"
	"github.com/freshlane/grocer-orders/internal/repository"
	"github.com/freshlane/grocer-orders/pkg/health"
	"github.com/freshlane/grocer-orders/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabaseCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Event publisher. Without brokers the engine runs standalone.
	var publisher order.EventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewPublisher(cfg.Kafka.Brokers)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				lg.Warn("Closing kafka publisher", zap.Error(err))
			}
		}()
		publisher = kafkaPublisher
	}

	// Repositories and domain services.
	orderRepo := repository.NewOrderRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	carbonHistoryRepo := repository.NewCarbonHistoryRepository(pool)

	estimator := carbon.NewEstimator(carbon.DefaultFactors(), carbon.DefaultCategoryRules())
	carbonService := carbon.NewService(estimator, carbonHistoryRepo, orderRepo)

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL)
	orderService := order.NewService(orderRepo, catalogClient, publisher, carbonService)
	scheduleService := schedule.NewService(scheduleRepo)

	// HTTP surface.
	h := handler.NewHandler(orderService, scheduleService, carbonService, auth.NewVerifier([]byte(cfg.JWTSecret)))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// RunScheduler creates the dependencies of the sweep worker and runs the
// sweep loop until the context is cancelled.
func RunScheduler(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing scheduler",
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.Duration("claim_ttl", cfg.Scheduler.ClaimTTL),
	)

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var publisher order.EventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewPublisher(cfg.Kafka.Brokers)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				lg.Warn("Closing kafka publisher", zap.Error(err))
			}
		}()
		publisher = kafkaPublisher
	}

	orderRepo := repository.NewOrderRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	carbonHistoryRepo := repository.NewCarbonHistoryRepository(pool)

	estimator := carbon.NewEstimator(carbon.DefaultFactors(), carbon.DefaultCategoryRules())
	carbonService := carbon.NewService(estimator, carbonHistoryRepo, orderRepo)

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL)
	orderService := order.NewService(orderRepo, catalogClient, publisher, carbonService)

	sweeper := schedule.NewSweeper(scheduleRepo, orderService, schedule.SweeperConfig{
		Interval:    cfg.Scheduler.Interval,
		ClaimTTL:    cfg.Scheduler.ClaimTTL,
		Parallelism: cfg.Scheduler.Parallelism,
	})

	lg.Info("Scheduler running")
	return sweeper.Run(ctx)
}
