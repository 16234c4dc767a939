package http

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/analytics"
	"github.com/mrlokans/adminauth/internal/audit"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/session"
)

const authTemplate = "auth.html"

// AuthPageController serves the auth pages. Every request mounts its own
// flow controller and unmounts it when the response is written.
type AuthPageController struct {
	registry      *flow.Registry
	transport     flow.Transport
	sessions      *session.Manager
	admin         flow.AdminState
	redirect      flow.RedirectPolicy
	opts          flow.Options
	audit         *audit.Service
	tracker       *analytics.QueueTracker
	limiter       *RateLimiter
	secureCookies bool
	templates     *template.Template
	log           zerolog.Logger
}

// NewAuthPageController creates the controller. Templates are optional; pages
// render as JSON when none are found.
func NewAuthPageController(cfg RouterConfig) *AuthPageController {
	var tmpl *template.Template
	if cfg.TemplatesPath != "" {
		if parsed, err := template.ParseGlob(filepath.Join(cfg.TemplatesPath, "auth", "*.html")); err == nil {
			tmpl = parsed
		}
	}

	opts := cfg.Options
	opts.Logger = cfg.Logger

	return &AuthPageController{
		registry:      cfg.Registry,
		transport:     cfg.Transport,
		sessions:      cfg.Sessions,
		admin:         cfg.Admin,
		redirect:      cfg.Redirect,
		opts:          opts,
		audit:         cfg.Audit,
		tracker:       cfg.Tracker,
		limiter:       cfg.Limiter,
		secureCookies: cfg.SecureCookies,
		templates:     tmpl,
		log:           cfg.Logger.With().Str("component", "auth_pages").Logger(),
	}
}

// RegisterRoutes registers the auth page routes on the router.
func (ac *AuthPageController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/auth/:authType", ac.Page)
	router.POST("/auth/:authType", ac.Submit)
}

// AuthPageResponse is the JSON rendering of an auth page.
type AuthPageResponse struct {
	Mode       string              `json:"mode"`
	Descriptor flow.FlowDescriptor `json:"descriptor"`
	State      flow.State          `json:"state"`
	Submitting bool                `json:"submitting"`
	Phase      string              `json:"phase"`
	Outcome    string              `json:"outcome,omitempty"`
	CSRFToken  string              `json:"csrfToken,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type mounted struct {
	ctrl *flow.Controller
	nav  *recordingNavigator
}

func (ac *AuthPageController) mount(c *gin.Context) (*mounted, bool) {
	nav := &recordingNavigator{}
	store := ac.sessions.For(c.Request.Context())
	deps := flow.Deps{
		Registry:  ac.registry,
		Transport: ac.transport,
		Session:   store,
		Navigator: nav,
		Admin:     ac.admin,
		Redirect:  ac.redirect,
		Locale:    cookieLocale{c: c, secure: ac.secureCookies},
		Tour:      store,
	}
	if ac.tracker != nil {
		deps.Tracker = ac.tracker.ForRequest(requestURL(c), c.Request.UserAgent(), c.ClientIP())
	}

	ctrl := flow.NewController(deps, ac.opts)
	target, err := ctrl.Mount(c.Request.Context(), c.Param("authType"), c.Request.URL.RawQuery)
	if err != nil {
		respondInternalError(c, ac.log, err, "mount auth page")
		return nil, false
	}
	if target != nil {
		if ac.audit != nil {
			ac.audit.LogGuard(c.Param("authType"), *target, ac.client(c))
		}
		c.Redirect(http.StatusFound, target.String())
		return nil, false
	}
	return &mounted{ctrl: ctrl, nav: nav}, true
}

// Page renders the form for a mode.
// GET /auth/:authType
func (ac *AuthPageController) Page(c *gin.Context) {
	m, ok := ac.mount(c)
	if !ok {
		return
	}
	defer m.ctrl.Unmount()

	ac.render(c, http.StatusOK, m.ctrl, "")
}

// Submit sends the form for a mode.
// POST /auth/:authType
func (ac *AuthPageController) Submit(c *gin.Context) {
	m, ok := ac.mount(c)
	if !ok {
		return
	}
	defer m.ctrl.Unmount()

	if err := ac.bindForm(c, m.ctrl); err != nil {
		respondBadRequest(c, "invalid form body")
		return
	}

	identity := formIdentity(m.ctrl.State().ModifiedData)
	ip := c.ClientIP()
	if ac.limiter != nil {
		if allowed, retryAfter := ac.limiter.Allow(ip, identity); !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many attempts",
				Code:  "rate_limited",
			})
			return
		}
	}

	if !m.ctrl.Validate() {
		ac.render(c, http.StatusUnprocessableEntity, m.ctrl, "")
		return
	}

	out, err := m.ctrl.Submit(c.Request.Context())
	if ac.audit != nil {
		ac.audit.LogSubmit(out, ac.client(c), err)
	}
	if ac.limiter != nil {
		switch {
		case out.Phase == flow.PhaseSucceeded:
			ac.limiter.RecordSuccess(ip, identity)
		case out.Kind != flow.KindNone:
			ac.limiter.RecordFailure(ip, identity)
		}
	}

	if err != nil {
		if errors.Is(err, flow.ErrRequestInFlight) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "in_flight"})
			return
		}
		respondInternalError(c, ac.log, err, "submit auth form")
		return
	}

	target := out.Target
	if target == nil {
		target = m.nav.Target()
	}
	if target != nil {
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{
				"mode":     out.Mode.String(),
				"outcome":  out.Phase.String(),
				"redirect": target.String(),
			})
			return
		}
		c.Redirect(http.StatusSeeOther, target.String())
		return
	}

	status := http.StatusOK
	if out.Phase == flow.PhaseFailed {
		status = out.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
	}
	ac.render(c, status, m.ctrl, out.Kind.String())
}

// bindForm copies request values for the schema fields into the form state.
// JSON bodies may nest values; form posts use dotted field names.
func (ac *AuthPageController) bindForm(c *gin.Context, ctrl *flow.Controller) error {
	schema := ctrl.Descriptor().Schema

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			return err
		}
		for _, f := range schema.Fields {
			if value, ok := flow.Lookup(body, f.Name); ok {
				ctrl.Change(f.Name, value)
			}
		}
		return nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	for _, f := range schema.Fields {
		if raw, ok := c.GetPostForm(f.Name); ok {
			ctrl.Change(f.Name, schema.Coerce(f.Name, raw))
		}
	}
	return nil
}

func (ac *AuthPageController) render(c *gin.Context, status int, ctrl *flow.Controller, outcome string) {
	if outcome == flow.KindNone.String() {
		outcome = ""
	}
	resp := AuthPageResponse{
		Mode:       ctrl.Mode().String(),
		Descriptor: ctrl.Descriptor(),
		State:      redact(ctrl.State(), ctrl.Descriptor()),
		Submitting: ctrl.Submitting(),
		Phase:      ctrl.Phase().String(),
		Outcome:    outcome,
		CSRFToken:  csrfToken(c),
		Error:      c.Query("error"),
	}

	if ac.templates == nil || wantsJSON(c) {
		c.JSON(status, resp)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	err := ac.templates.ExecuteTemplate(c.Writer, authTemplate, gin.H{
		"Page":      resp,
		"Analytics": analyticsTemplateData(c),
	})
	if err != nil {
		ac.log.Error().Err(err).Str("template", authTemplate).Msg("failed to render auth page")
	}
}

func (ac *AuthPageController) client(c *gin.Context) audit.Client {
	return audit.Client{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// redact blanks password fields before the state leaves the server.
func redact(s flow.State, d flow.FlowDescriptor) flow.State {
	for _, f := range d.Schema.Fields {
		name := f.Name[strings.LastIndex(f.Name, ".")+1:]
		if strings.Contains(strings.ToLower(name), "password") {
			s = flow.Reduce(s, flow.SetField{Name: f.Name, Value: ""})
		}
	}
	return s
}

// formIdentity returns the email a submit is made for, used as the rate
// limit key.
func formIdentity(data map[string]any) string {
	for _, path := range []string{"email", "userInfo.email"} {
		if v, ok := flow.Lookup(data, path); ok {
			if s, ok := v.(string); ok && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	return ""
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}

func requestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}
