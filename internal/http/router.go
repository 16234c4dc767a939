package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Analytics publishes the script origin the CSP must allow.
	if cfg.Plausible != nil {
		router.Use(AnalyticsContextMiddleware(cfg.Plausible))
	}
	router.Use(SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.Sessions.SessionLoadSave(cfg.Logger))

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	health := NewHealthController(pinger(cfg), cfg.Identity, cfg.AdminStatus, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	NewAuthPageController(cfg).RegisterRoutes(router)

	if cfg.Audit != nil {
		attempts := NewAttemptsController(cfg.Audit, cfg.Sessions, cfg.Logger)
		router.GET("/api/auth/attempts", attempts.GetAttempts)
	}

	if cfg.Plausible != nil {
		NewAnalyticsSettingsController(cfg.Plausible, cfg.Sessions, cfg.Logger).RegisterRoutes(router)
	}

	return router
}

func pinger(cfg RouterConfig) Pinger {
	if cfg.Database == nil {
		return nil
	}
	return cfg.Database
}
