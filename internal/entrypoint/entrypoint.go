package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mrlokans/session-auth/internal/audit"
	"github.com/mrlokans/session-auth/internal/auth"
	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/database"
	auditrepo "github.com/mrlokans/session-auth/internal/database/audit"
	"github.com/mrlokans/session-auth/internal/database/users"
	http_controllers "github.com/mrlokans/session-auth/internal/http"
	"github.com/mrlokans/session-auth/internal/scheduler"
	"github.com/mrlokans/session-auth/internal/tasks"
)

// App holds the wired service. Build it with NewApp and release it with
// Shutdown.
type App struct {
	Router *gin.Engine
	Users  *users.Repository
	Audit  *audit.Service

	cfg        *config.Config
	logger     zerolog.Logger
	db         *database.Database
	sessions   *auth.SessionManager
	controller *auth.AuthController
	taskClient *tasks.Client
	taskCancel context.CancelFunc
	scheduler  *scheduler.AuditCleanupScheduler
}

// NewApp opens storage and wires every component. Background work (task
// queue and cleanup schedule) starts under ctx.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, version string) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, logger: logger, db: db}

	if err := app.wire(ctx, version); err != nil {
		app.Shutdown(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, version string) error {
	cfg := a.cfg

	sqlDB, err := a.db.SQLDB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	a.sessions, err = auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	a.Users = users.NewRepository(a.db.DB)
	a.Audit = audit.NewService(auditrepo.NewRepository(a.db.DB))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	service, err := auth.NewService(a.Users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), auth.NewMetrics(registry))
	if err != nil {
		return err
	}

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	a.controller = auth.NewAuthController(service, a.sessions, limiter, a.Audit)

	gate := auth.NewGate(a.Users, a.sessions,
		auth.OpSignup, auth.OpLogin,
		auth.OpHealth, auth.OpPing, auth.OpMetrics,
	)

	csrfSecret := cfg.Auth.SessionSecret
	if cfg.Auth.CSRFEnabled && csrfSecret == "" {
		csrfSecret, err = auth.GenerateSessionSecret()
		if err != nil {
			return fmt.Errorf("failed to generate CSRF secret: %w", err)
		}
		a.logger.Warn().Msg("Generated CSRF secret (set AUTH_SESSION_SECRET to persist)")
	}

	if err := a.startBackground(ctx); err != nil {
		return err
	}

	a.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       a.db,
		Logger:         a.logger,
		SessionManager: a.sessions,
		Gate:           gate,
		AuthController: a.controller,
		CSRFEnabled:    cfg.Auth.CSRFEnabled,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		AuditCleanup:   a.scheduler,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Version:        version,
	})
	return nil
}

func (a *App) startBackground(ctx context.Context) error {
	cfg := a.cfg

	var runner scheduler.CleanupRunner = scheduler.DirectRunner{Cleaner: a.Audit}
	if cfg.Tasks.Enabled {
		client, err := tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		client.Register(tasks.NewCleanupAuditEventsQueue(a.Audit, a.logger))

		var taskCtx context.Context
		taskCtx, a.taskCancel = context.WithCancel(ctx)
		go client.Start(taskCtx)
		a.taskClient = client
		runner = scheduler.QueueRunner{Client: client}
	} else {
		a.logger.Info().Msg("Task queue disabled, audit cleanup runs inline")
	}

	a.scheduler = scheduler.NewAuditCleanupScheduler(runner, cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays, a.logger)
	return a.scheduler.Start(ctx)
}

// Shutdown stops background work, flushes pending audit writes and closes
// storage. It is safe on a partially built App.
func (a *App) Shutdown(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.taskClient != nil {
		a.taskClient.Stop(ctx)
		if a.taskCancel != nil {
			a.taskCancel()
		}
		if err := a.taskClient.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close task queue")
		}
	}
	if a.controller != nil {
		a.controller.Stop()
	}
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database")
		}
	}
}

// Serve runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down within the configured timeout.
func Serve(ctx context.Context, app *App) error {
	cfg := app.cfg
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			app.Shutdown(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	app.logger.Info().Dur("timeout", timeout).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	app.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	app.logger.Info().Msg("Server exiting")
	return nil
}

// Run builds the App from cfg and serves it.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, version string) error {
	logger.Info().Str("version", version).Msg("Starting session-auth")

	app, err := NewApp(ctx, cfg, logger, version)
	if err != nil {
		return err
	}
	return Serve(ctx, app)
}
