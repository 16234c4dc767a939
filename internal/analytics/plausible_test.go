package analytics

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/database"
	"github.com/mrlokans/adminauth/internal/database/settings"
)

func setupTestStore(t *testing.T, env config.Plausible) *PlausibleStore {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "plausible.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPlausibleStore(settings.NewRepository(db.DB), env)
}

func TestPlausibleStore_Defaults(t *testing.T) {
	store := setupTestStore(t, config.Plausible{})

	info := store.GetSettingsInfo()
	assert.False(t, info.Enabled)
	assert.Equal(t, "default", info.EnabledSource)
	assert.Equal(t, "", info.Domain)
	assert.Equal(t, "https://plausible.io/js/script.js", info.ScriptURL)
	assert.Equal(t, "default", info.ScriptURLSource)

	cfg := store.GetEffectiveConfig()
	assert.Equal(t, DefaultEventsURL, cfg.EventsURL)
}

func TestPlausibleStore_EnvironmentEnables(t *testing.T) {
	store := setupTestStore(t, config.Plausible{
		Domain:    "admin.example.com",
		ScriptURL: "https://stats.example.com/js/script.js",
		EventsURL: "https://stats.example.com/api/event",
	})

	cfg := store.GetEffectiveConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "admin.example.com", cfg.Domain)
	assert.Equal(t, "https://stats.example.com/api/event", cfg.EventsURL)

	info := store.GetSettingsInfo()
	assert.Equal(t, "environment", info.EnabledSource)
	assert.Equal(t, "environment", info.DomainSource)
	assert.Equal(t, "environment", info.ScriptURLSource)
}

func TestPlausibleStore_DatabaseOverridesEnvironment(t *testing.T) {
	store := setupTestStore(t, config.Plausible{Domain: "env.example.com"})

	require.NoError(t, store.SetEnabled(false))
	require.NoError(t, store.SetDomain("db.example.com"))
	require.NoError(t, store.SetScriptURL("https://db.example.com/script.js"))

	info := store.GetSettingsInfo()
	assert.False(t, info.Enabled)
	assert.Equal(t, "database", info.EnabledSource)
	assert.Equal(t, "db.example.com", info.Domain)
	assert.Equal(t, "database", info.DomainSource)
	assert.Equal(t, "https://db.example.com/script.js", info.ScriptURL)

	require.NoError(t, store.ClearSettings())
	info = store.GetSettingsInfo()
	assert.True(t, info.Enabled)
	assert.Equal(t, "env.example.com", info.Domain)
	assert.Equal(t, "environment", info.DomainSource)
}

func TestGenerateScriptTag(t *testing.T) {
	assert.Empty(t, GenerateScriptTag(nil))
	assert.Empty(t, GenerateScriptTag(&PlausibleConfig{Enabled: true}))
	assert.Empty(t, GenerateScriptTag(&PlausibleConfig{Domain: "x.com", ScriptURL: "https://p/s.js"}))

	tag := GenerateScriptTag(&PlausibleConfig{
		Enabled:   true,
		Domain:    `a"b.com`,
		ScriptURL: "https://plausible.io/js/script.js",
	})
	assert.Contains(t, string(tag), `data-domain="a&#34;b.com"`)
	assert.Contains(t, string(tag), `src="https://plausible.io/js/script.js"`)
}
