package session

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/flow"
)

const defaultLifetime = 24 * time.Hour

// Session data keys
const (
	KeyToken       = "jwtToken"
	KeyUserInfo    = "userInfo"
	keyFlagPrefix  = "flag:"
	keyTourSkipped = "tour:skipped"
)

func init() {
	gob.Register(flow.User{})
}

// Manager wraps scs.SessionManager with the auth page session layout.
type Manager struct {
	*scs.SessionManager
	clock func() time.Time
}

// NewManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewManager(sqlDB *sql.DB, cfg config.Auth) (*Manager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	// Cookies end with the browser session unless the user asked to be remembered.
	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = false
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &Manager{SessionManager: sm, clock: time.Now}, nil
}

func (sm *Manager) now() time.Time {
	if sm.clock == nil {
		return time.Now()
	}
	return sm.clock()
}
