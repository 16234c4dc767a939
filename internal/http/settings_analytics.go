package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/analytics"
	"github.com/mrlokans/adminauth/internal/session"
)

// AnalyticsSettingsController manages the Plausible settings that decide
// whether auth usage events are delivered.
type AnalyticsSettingsController struct {
	store    *analytics.PlausibleStore
	sessions *session.Manager
	log      zerolog.Logger
}

func NewAnalyticsSettingsController(store *analytics.PlausibleStore, sessions *session.Manager, logger zerolog.Logger) *AnalyticsSettingsController {
	return &AnalyticsSettingsController{store: store, sessions: sessions, log: logger}
}

// RegisterRoutes mounts the settings API behind the signed-in session.
func (ac *AnalyticsSettingsController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/settings/analytics", ac.requireSession)
	group.GET("", ac.GetAnalyticsSettings)
	group.PUT("", ac.SaveAnalyticsSettings)
	group.DELETE("", ac.ClearAnalyticsSettings)
}

func (ac *AnalyticsSettingsController) requireSession(c *gin.Context) {
	if _, ok := ac.sessions.For(c.Request.Context()).Token(); !ok {
		respondUnauthorized(c)
		c.Abort()
		return
	}
	c.Next()
}

// AnalyticsSettingsResponse reports each effective value with its source.
type AnalyticsSettingsResponse struct {
	Enabled         bool   `json:"enabled"`
	EnabledSource   string `json:"enabled_source"`
	Domain          string `json:"domain"`
	DomainSource    string `json:"domain_source"`
	ScriptURL       string `json:"script_url"`
	ScriptURLSource string `json:"script_url_source"`
	ScriptTag       string `json:"script_tag,omitempty"`
}

// GetAnalyticsSettings returns the current analytics settings.
func (ac *AnalyticsSettingsController) GetAnalyticsSettings(c *gin.Context) {
	info := ac.store.GetSettingsInfo()
	c.JSON(http.StatusOK, AnalyticsSettingsResponse{
		Enabled:         info.Enabled,
		EnabledSource:   info.EnabledSource,
		Domain:          info.Domain,
		DomainSource:    info.DomainSource,
		ScriptURL:       info.ScriptURL,
		ScriptURLSource: info.ScriptURLSource,
		ScriptTag:       string(analytics.GenerateScriptTag(ac.store.GetEffectiveConfig())),
	})
}

// AnalyticsSaveRequest updates the provided settings only.
type AnalyticsSaveRequest struct {
	Enabled   *bool  `json:"enabled"`
	Domain    string `json:"domain"`
	ScriptURL string `json:"script_url"`
}

// SaveAnalyticsSettings stores overrides in the database.
func (ac *AnalyticsSettingsController) SaveAnalyticsSettings(c *gin.Context) {
	var req AnalyticsSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	scriptURL := strings.TrimSpace(req.ScriptURL)
	if scriptURL != "" {
		u, err := url.Parse(scriptURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			respondBadRequest(c, "script_url must be an absolute https URL")
			return
		}
	}

	if req.Enabled != nil {
		if err := ac.store.SetEnabled(*req.Enabled); err != nil {
			respondInternalError(c, ac.log, err, "save analytics enabled")
			return
		}
	}
	if domain := strings.TrimSpace(req.Domain); domain != "" {
		if err := ac.store.SetDomain(domain); err != nil {
			respondInternalError(c, ac.log, err, "save analytics domain")
			return
		}
	}
	if scriptURL != "" {
		if err := ac.store.SetScriptURL(scriptURL); err != nil {
			respondInternalError(c, ac.log, err, "save analytics script URL")
			return
		}
	}

	ac.GetAnalyticsSettings(c)
}

// ClearAnalyticsSettings removes database overrides, reverting to
// environment and defaults.
func (ac *AnalyticsSettingsController) ClearAnalyticsSettings(c *gin.Context) {
	if err := ac.store.ClearSettings(); err != nil {
		respondInternalError(c, ac.log, err, "clear analytics settings")
		return
	}
	ac.GetAnalyticsSettings(c)
}
