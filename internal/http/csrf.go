package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const csrfTokenKey = "csrf_token"

// CSRFMiddleware protects auth form posts. Safe methods pass through and
// receive a token for the rendered form.
func CSRFMiddleware(secret []byte, secure bool) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if !secure {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}
		passed := false
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(csrfTokenKey, csrf.Token(r))
			// Session middleware runs after this and layers its context on top.
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	// Form posts go back to the page they came from.
	if referer := r.Referer(); referer != "" {
		sep := "?"
		if strings.Contains(referer, "?") {
			sep = "&"
		}
		http.Redirect(w, r, referer+sep+"error=Session+expired.+Please+try+again.", http.StatusSeeOther)
		return
	}

	http.Error(w, "Forbidden - CSRF token invalid or missing", http.StatusForbidden)
}

// csrfToken returns the token issued for this request.
func csrfToken(c *gin.Context) string {
	return c.GetString(csrfTokenKey)
}
