package http

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// analyticsScriptURLKey is the Gin context key for the analytics script URL.
// Set by AnalyticsContextMiddleware, read by SecurityHeadersMiddleware.
const analyticsScriptURLKey = "analytics_script_url"

// SecurityHeadersMiddleware adds security headers to all responses. Auth pages
// are never framed and never cached.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "same-origin")
		c.Header("Cache-Control", "no-store")

		scriptSrc := "'self'"
		connectSrc := "'self'"
		if raw := c.GetString(analyticsScriptURLKey); raw != "" {
			if origin := extractOrigin(raw); origin != "" {
				scriptSrc += " " + origin
				connectSrc += " " + origin
			}
		}

		formAction := "'self'"
		if host := c.Request.Host; host != "" {
			formAction += " https://" + host
		}

		c.Header("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src "+scriptSrc+"; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src "+connectSrc+"; "+
				"frame-ancestors 'none'; "+
				"form-action "+formAction)

		c.Next()
	}
}

// extractOrigin returns scheme://host of rawURL, assuming https when the
// scheme is missing.
func extractOrigin(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
