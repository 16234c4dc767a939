package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/analytics"
	"github.com/mrlokans/adminauth/internal/audit"
	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/database"
	dbaudit "github.com/mrlokans/adminauth/internal/database/audit"
	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/flow"
	http_controllers "github.com/mrlokans/adminauth/internal/http"
	"github.com/mrlokans/adminauth/internal/identity"
	"github.com/mrlokans/adminauth/internal/logging"
	"github.com/mrlokans/adminauth/internal/scheduler"
	"github.com/mrlokans/adminauth/internal/session"
	"github.com/mrlokans/adminauth/internal/settingsstore"
	"github.com/mrlokans/adminauth/internal/tasks"
)

const limiterCleanupInterval = 5 * time.Minute

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, logger zerolog.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the server so queued events drain first.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}

	logger.Info().Msg("server exiting")
}

// csrfSecret decodes the configured secret, falling back to the raw bytes
// when it is not hex. An empty setting generates a per-process secret.
func csrfSecret(configured string) ([]byte, bool, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, false, nil
		}
		return []byte(configured), false, nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, err
	}
	return secret, true, nil
}

func Run(cfg *config.Config, version string) {
	logger := logging.New(cfg.Log)
	logger.Info().Str("version", version).Msg("starting adminauth")

	db, err := database.NewDatabase(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing database")
		}
	}()

	settingsRepo := settings.NewRepository(db.DB)
	admin := settingsstore.New(settingsRepo)
	idClient := identity.NewClient(cfg.Identity, logger)
	auditService := audit.NewService(dbaudit.NewRepository(db.DB), logging.Component(logger, "audit"))

	sqlDB, err := db.DB.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get SQL DB for sessions")
	}
	sessions, err := session.NewManager(sqlDB, cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize session manager")
	}

	secret, generated, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to generate CSRF secret")
	}
	if generated {
		logger.Warn().Msg("generated CSRF secret (set AUTH_SESSION_SECRET to persist)")
	}

	forms, err := config.LoadForms(cfg.Auth.FormsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load auth forms")
	}
	if forms != nil {
		logger.Info().Str("file", cfg.Auth.FormsFile).Int("forms", len(forms)).Msg("loaded form overrides")
	}
	registry := flow.NewRegistry(flow.DefaultForms(), forms)

	plausible := analytics.NewPlausibleStore(settingsRepo, cfg.Plausible)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var taskClient *tasks.Client
	var tracker *analytics.QueueTracker
	if cfg.Tasks.Enabled {
		events := analytics.NewEventsClient(plausible, logger)
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks),
			tasks.Handlers{Events: events, Audit: auditService}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing task client")
			}
		}()
		go taskClient.Start(bgCtx)

		retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
		if err := taskClient.ScheduleAuditPurge(bgCtx, retention, cfg.Audit.PurgeInterval); err != nil {
			logger.Warn().Err(err).Msg("failed to schedule audit purge")
		}
		tracker = analytics.NewQueueTracker(taskClient, logger)
	} else {
		logger.Info().Msg("task queue disabled, usage events are not sent")
	}

	var adminSync *scheduler.AdminSyncScheduler
	if cfg.AdminSync.Enabled {
		adminSync = scheduler.NewAdminSyncScheduler(idClient, admin, auditService, cfg.AdminSync, logger)
		if err := adminSync.Start(bgCtx); err != nil {
			logger.Error().Err(err).Msg("failed to start admin sync scheduler")
		}
	}
	if adminSync != nil {
		if err := adminSync.RefreshNow(bgCtx); err != nil {
			logger.Warn().Err(err).Msg("initial admin check failed, using stored state")
		}
	} else if info, err := idClient.Init(bgCtx); err != nil {
		logger.Warn().Err(err).Msg("initial admin check failed, using stored state")
	} else if err := admin.RecordAdminCheck(info.HasAdmin, info.UUID, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("failed to store admin state")
	}
	if !admin.HasAdmin() {
		logger.Info().Msg("no administrator yet, visit /auth/register-admin to create one")
	}

	limiter := http_controllers.NewRateLimiter(cfg.Auth)
	go limiter.Run(bgCtx, limiterCleanupInterval)

	if !cfg.Auth.SecureCookies {
		logger.Warn().Msg("secure cookies disabled, use only for local development")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:  db,
		Transport: idClient,
		Registry:  registry,
		Sessions:  sessions,
		Admin:     admin,
		Redirect: flow.RedirectPolicy{
			Routes:    flow.DefaultRoutes(),
			LocalOnly: cfg.Auth.RedirectLocalOnly,
		},
		Options: flow.Options{
			NormalizeSubmitting: cfg.Auth.NormalizeSubmitting,
			RegistrationToRoot:  cfg.Auth.RegistrationToRoot,
			SuperAdminRole:      cfg.Auth.SuperAdminRole,
			Logger:              logger,
		},
		Identity:      idClient,
		AdminStatus:   admin,
		Audit:         auditService,
		Tracker:       tracker,
		Plausible:     plausible,
		Limiter:       limiter,
		CSRFSecret:    secret,
		SecureCookies: cfg.Auth.SecureCookies,
		TemplatesPath: cfg.UI.TemplatesPath,
		StaticPath:    cfg.UI.StaticPath,
		Version:       version,
		Logger:        logging.Component(logger, "http"),
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if adminSync != nil {
			adminSync.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
		auditService.Wait()
	}

	Serve(router, cfg, logger, onShutdown)
}
