package http

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/analytics"
	"github.com/mrlokans/adminauth/internal/audit"
	"github.com/mrlokans/adminauth/internal/database"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/identity"
	"github.com/mrlokans/adminauth/internal/session"
	"github.com/mrlokans/adminauth/internal/settingsstore"
)

// IdentityChecker reports identity service reachability.
type IdentityChecker interface {
	Init(ctx context.Context) (*identity.InitInfo, error)
}

// AdminStatusReader exposes the persisted admin state.
type AdminStatusReader interface {
	Status() settingsstore.AdminStatus
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	Transport flow.Transport
	Registry  *flow.Registry
	Sessions  *session.Manager
	Admin     flow.AdminState
	Redirect  flow.RedirectPolicy
	Options   flow.Options

	// Optional collaborators
	Identity    IdentityChecker
	AdminStatus AdminStatusReader
	Audit       *audit.Service
	Tracker     *analytics.QueueTracker
	Plausible   *analytics.PlausibleStore
	Limiter     *RateLimiter

	// CSRF protection is enabled when a secret is set
	CSRFSecret    []byte
	SecureCookies bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
	Logger  zerolog.Logger
}
