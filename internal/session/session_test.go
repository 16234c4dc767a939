package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/crypto"
	"github.com/mrlokans/adminauth/internal/database"
	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/entities"
	"github.com/mrlokans/adminauth/internal/flow"
)

var (
	_ flow.SessionStore = (*RequestStore)(nil)
	_ flow.SessionStore = (*LocalStore)(nil)
	_ flow.GuidedTour   = (*LocalStore)(nil)
)

func setupDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "session.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupManager(t *testing.T) *Manager {
	t.Helper()
	sqlDB, err := setupDatabase(t).DB.DB()
	require.NoError(t, err)

	sm, err := NewManager(sqlDB, config.Auth{SessionLifetime: 24 * time.Hour})
	require.NoError(t, err)
	return sm
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  1,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func setupRouter(sm *Manager, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sm.SessionLoadSave(zerolog.Nop()))
	r.POST("/login", func(c *gin.Context) {
		store := sm.For(c.Request.Context())
		remember := c.Query("remember") == "true"
		if err := store.SetToken(token, remember); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		_ = store.SetUserInfo(flow.User{ID: 7, Email: "kai@doe.com"}, remember)
		_ = store.SetFlag(flow.FlagGuidedTourSkipped, false, false)
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", func(c *gin.Context) {
		store := sm.For(c.Request.Context())
		token, ok := store.Token()
		user, _ := store.UserInfo()
		skipped, flagSet := store.Flag(flow.FlagGuidedTourSkipped)
		c.JSON(http.StatusOK, gin.H{
			"hasToken": ok,
			"token":    token,
			"email":    user.Email,
			"skipped":  skipped,
			"flagSet":  flagSet,
		})
	})
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestNewManager(t *testing.T) {
	sm := setupManager(t)

	assert.Equal(t, "session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Persist)
	assert.Equal(t, http.SameSiteLaxMode, sm.Cookie.SameSite)
	assert.Equal(t, 24*time.Hour, sm.Lifetime)
	assert.Equal(t, 12*time.Hour, sm.IdleTimeout)
}

func TestRequestStore_RoundTrip(t *testing.T) {
	sm := setupManager(t)
	token := signedToken(t, time.Now().Add(time.Hour))
	r := setupRouter(sm, token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.Expires.IsZero(), "session cookie without remember me")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, `"hasToken":true`)
	assert.Contains(t, body, `"email":"kai@doe.com"`)
	assert.Contains(t, body, `"flagSet":true`)
	assert.Contains(t, body, `"skipped":false`)
}

func TestRequestStore_RememberMePersistsCookie(t *testing.T) {
	sm := setupManager(t)
	r := setupRouter(sm, signedToken(t, time.Now().Add(time.Hour)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login?remember=true", nil))

	cookie := sessionCookie(t, w)
	assert.False(t, cookie.Expires.IsZero())
	assert.Equal(t, "Cookie", w.Header().Get("Vary"))
}

func TestRequestStore_ExpiredTokenIsAbsent(t *testing.T) {
	sm := setupManager(t)
	r := setupRouter(sm, signedToken(t, time.Now().Add(-time.Minute)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(sessionCookie(t, w))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), `"hasToken":false`)
}

func TestTokenUsable(t *testing.T) {
	now := time.Now()

	assert.False(t, tokenUsable("", now))
	assert.True(t, tokenUsable("opaque-token", now))
	assert.True(t, tokenUsable(signedToken(t, now.Add(time.Minute)), now))
	assert.False(t, tokenUsable(signedToken(t, now.Add(-time.Minute)), now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.True(t, tokenUsable(noExp, now))
}

func newSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealerFromBase64(key)
	require.NoError(t, err)
	return sealer
}

func TestLocalStore(t *testing.T) {
	repo := settings.NewRepository(setupDatabase(t).DB)
	sealer := newSealer(t)

	t.Run("values without remember stay in memory", func(t *testing.T) {
		store := NewLocalStore(repo, sealer)
		require.NoError(t, store.SetToken("opaque", false))

		token, ok := store.Token()
		assert.True(t, ok)
		assert.Equal(t, "opaque", token)

		_, ok = NewLocalStore(repo, sealer).Token()
		assert.False(t, ok, "a fresh process must not see an unremembered token")
	})

	t.Run("remembered values survive a restart", func(t *testing.T) {
		store := NewLocalStore(repo, sealer)
		require.NoError(t, store.SetToken("persisted", true))
		require.NoError(t, store.SetUserInfo(flow.User{Email: "kai@doe.com", PreferedLanguage: "fr"}, true))
		require.NoError(t, store.SetFlag(flow.FlagGuidedTourSkipped, true, true))

		restarted := NewLocalStore(repo, sealer)
		token, ok := restarted.Token()
		assert.True(t, ok)
		assert.Equal(t, "persisted", token)

		user, ok := restarted.UserInfo()
		require.True(t, ok)
		assert.Equal(t, "fr", user.PreferedLanguage)

		skipped, ok := restarted.Flag(flow.FlagGuidedTourSkipped)
		assert.True(t, ok)
		assert.True(t, skipped)

		require.NoError(t, restarted.Clear())
		_, ok = NewLocalStore(repo, sealer).Token()
		assert.False(t, ok)
		_, ok = NewLocalStore(repo, sealer).Flag(flow.FlagGuidedTourSkipped)
		assert.False(t, ok)
	})

	t.Run("guided tour state is process local", func(t *testing.T) {
		store := NewLocalStore(repo, sealer)
		_, ok := store.TourSkipped()
		assert.False(t, ok)

		store.SetSkipped(false)
		skipped, ok := store.TourSkipped()
		assert.True(t, ok)
		assert.False(t, skipped)

		_, ok = NewLocalStore(repo, sealer).TourSkipped()
		assert.False(t, ok)
	})

	t.Run("remembered values are sealed at rest", func(t *testing.T) {
		store := NewLocalStore(repo, sealer)
		token := signedToken(t, time.Now().Add(time.Hour))
		require.NoError(t, store.SetToken(token, true))
		require.NoError(t, store.SetUserInfo(flow.User{Email: "kai@doe.com"}, true))

		raw, ok, err := repo.Get(entities.SettingKeySessionToken)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEqual(t, token, raw)
		assert.NotContains(t, raw, token)

		raw, ok, err = repo.Get(entities.SettingKeySessionUser)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotContains(t, raw, "kai@doe.com")

		got, ok := NewLocalStore(repo, sealer).Token()
		require.True(t, ok)
		assert.Equal(t, token, got)

		_, ok = NewLocalStore(repo, newSealer(t)).Token()
		assert.False(t, ok, "another key cannot read the stored token")

		require.NoError(t, store.Clear())
	})

	t.Run("expired token is absent", func(t *testing.T) {
		store := NewLocalStore(repo, sealer)
		require.NoError(t, store.SetToken(signedToken(t, time.Now().Add(-time.Hour)), false))
		_, ok := store.Token()
		assert.False(t, ok)
	})
}

func TestSessionLoadSave_InvalidCookieStartsFresh(t *testing.T) {
	sm := setupManager(t)
	r := setupRouter(sm, "opaque")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: strings.Repeat("x", 43)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasToken":false`)
}

func TestRequestStore_GuidedTour(t *testing.T) {
	sm := setupManager(t)
	ctx, err := sm.Load(context.Background(), "")
	require.NoError(t, err)

	var tour flow.GuidedTour = sm.For(ctx)
	tour.SetSkipped(false)

	skipped, ok := sm.For(ctx).TourSkipped()
	assert.True(t, ok)
	assert.False(t, skipped)
}
