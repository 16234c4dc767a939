package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/adminauth/internal/analytics"
)

const analyticsContextKey = "analytics_template_data"

// AnalyticsTemplateData holds Plausible analytics info for templates.
type AnalyticsTemplateData struct {
	Enabled   bool
	Domain    string
	ScriptTag template.HTML
}

// AnalyticsContextMiddleware injects analytics data into the Gin context and
// publishes the script URL for SecurityHeadersMiddleware. Must run before it.
func AnalyticsContextMiddleware(store *analytics.PlausibleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := store.GetEffectiveConfig()

		c.Set(analyticsContextKey, AnalyticsTemplateData{
			Enabled:   cfg.Enabled,
			Domain:    cfg.Domain,
			ScriptTag: analytics.GenerateScriptTag(cfg),
		})
		if cfg.Enabled && cfg.ScriptURL != "" {
			c.Set(analyticsScriptURLKey, cfg.ScriptURL)
		}

		c.Next()
	}
}

func analyticsTemplateData(c *gin.Context) AnalyticsTemplateData {
	data, _ := c.Get(analyticsContextKey)
	out, _ := data.(AnalyticsTemplateData)
	return out
}
