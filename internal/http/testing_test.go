package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/audit"
	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/database"
	dbaudit "github.com/mrlokans/adminauth/internal/database/audit"
	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/identity"
	"github.com/mrlokans/adminauth/internal/session"
	"github.com/mrlokans/adminauth/internal/settingsstore"
)

const validPassword = "Secret123"

// fakeIdentity mimics the admin identity service.
type fakeIdentity struct {
	posts atomic.Int32
}

func (f *fakeIdentity) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/admin/init" {
		_, _ = w.Write([]byte(`{"data":{"hasAdmin":true,"uuid":"inst-1"}}`))
		return
	}

	f.posts.Add(1)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case "/admin/login":
		switch {
		case body["email"] == "inactive@doe.com":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"User not active"}}`))
		case body["email"] == "kai@doe.com" && body["password"] == validPassword:
			_, _ = w.Write([]byte(`{"data":{"token":"session-token","user":{"id":1,"email":"kai@doe.com","preferedLanguage":"fr"}}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid credentials"}}`))
		}
	case "/admin/register-admin":
		_, _ = w.Write([]byte(`{"data":{"token":"admin-token","user":{"id":1,"email":"kai@doe.com","roles":[{"id":1,"code":"strapi-super-admin"}]}}}`))
	case "/admin/forgot-password":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	router   *gin.Engine
	identity *fakeIdentity
	admin    *settingsstore.AdminStore
	audit    *audit.Service
}

func setupEnv(t *testing.T, hasAdmin bool, mutate func(*RouterConfig)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv(settingsstore.EnvHasAdmin, "")

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "http.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessions, err := session.NewManager(sqlDB, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)

	admin := settingsstore.New(settings.NewRepository(db.DB))
	require.NoError(t, admin.SetHasAdmin(hasAdmin))

	fake := &fakeIdentity{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	idClient := identity.NewClient(config.Identity{BaseURL: srv.URL, InitRetries: 1}, zerolog.Nop())

	auditSvc := audit.NewService(dbaudit.NewRepository(db.DB), zerolog.Nop())

	cfg := RouterConfig{
		Database:    db,
		Transport:   idClient,
		Registry:    flow.DefaultRegistry(),
		Sessions:    sessions,
		Admin:       admin,
		Redirect:    flow.RedirectPolicy{Routes: flow.DefaultRoutes(), LocalOnly: true},
		Identity:    idClient,
		AdminStatus: admin,
		Audit:       auditSvc,
		Version:     "test",
		Logger:      zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &testEnv{
		router:   NewRouter(cfg),
		identity: fake,
		admin:    admin,
		audit:    auditSvc,
	}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return e.do(req, cookies...)
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookies...)
}

func (e *testEnv) postJSON(path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return e.do(req, cookies...)
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) AuthPageResponse {
	t.Helper()
	var page AuthPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page), w.Body.String())
	return page
}

func httptestPost(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
