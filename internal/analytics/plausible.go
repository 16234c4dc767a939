package analytics

import (
	"html/template"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/entities"
)

const defaultScriptURL = "https://plausible.io/js/script.js"

// SettingsReader is the subset of the settings repository the store needs.
type SettingsReader interface {
	Get(key string) (value string, ok bool, err error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// PlausibleConfig holds the effective Plausible Analytics configuration
type PlausibleConfig struct {
	Enabled   bool
	Domain    string
	ScriptURL string
	EventsURL string
}

// PlausibleSettingsInfo contains settings with source information
type PlausibleSettingsInfo struct {
	Enabled         bool
	EnabledSource   string // "database", "environment", or "default"
	Domain          string
	DomainSource    string
	ScriptURL       string
	ScriptURLSource string
}

// PlausibleStore resolves Plausible settings with priority: database > environment > default
type PlausibleStore struct {
	settings  SettingsReader
	envConfig config.Plausible
}

func NewPlausibleStore(settings SettingsReader, envConfig config.Plausible) *PlausibleStore {
	return &PlausibleStore{
		settings:  settings,
		envConfig: envConfig,
	}
}

// GetEffectiveConfig returns the merged configuration with database taking priority
func (s *PlausibleStore) GetEffectiveConfig() *PlausibleConfig {
	info := s.GetSettingsInfo()

	eventsURL := s.envConfig.EventsURL
	if eventsURL == "" {
		eventsURL = DefaultEventsURL
	}

	return &PlausibleConfig{
		Enabled:   info.Enabled,
		Domain:    info.Domain,
		ScriptURL: info.ScriptURL,
		EventsURL: eventsURL,
	}
}

// GetSettingsInfo returns settings with source information
func (s *PlausibleStore) GetSettingsInfo() PlausibleSettingsInfo {
	info := PlausibleSettingsInfo{}
	info.Enabled, info.EnabledSource = s.getEnabled()
	info.Domain, info.DomainSource = s.getDomain()
	info.ScriptURL, info.ScriptURLSource = s.getScriptURL()
	return info
}

func (s *PlausibleStore) stored(key string) (string, bool) {
	value, ok, err := s.settings.Get(key)
	if err != nil || !ok || value == "" {
		return "", false
	}
	return value, true
}

func (s *PlausibleStore) getEnabled() (bool, string) {
	if value, ok := s.stored(entities.SettingKeyPlausibleEnabled); ok {
		return value == "true", "database"
	}

	// Enabled from the environment when a domain is set
	if s.envConfig.Domain != "" {
		return true, "environment"
	}

	return false, "default"
}

func (s *PlausibleStore) getDomain() (string, string) {
	if value, ok := s.stored(entities.SettingKeyPlausibleDomain); ok {
		return value, "database"
	}
	if s.envConfig.Domain != "" {
		return s.envConfig.Domain, "environment"
	}
	return "", "default"
}

func (s *PlausibleStore) getScriptURL() (string, string) {
	if value, ok := s.stored(entities.SettingKeyPlausibleScriptURL); ok {
		return value, "database"
	}
	if s.envConfig.ScriptURL != "" {
		return s.envConfig.ScriptURL, "environment"
	}
	return defaultScriptURL, "default"
}

// SetEnabled sets the enabled flag in the database
func (s *PlausibleStore) SetEnabled(enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return s.settings.SetSetting(entities.SettingKeyPlausibleEnabled, value)
}

// SetDomain sets the domain in the database
func (s *PlausibleStore) SetDomain(domain string) error {
	return s.settings.SetSetting(entities.SettingKeyPlausibleDomain, domain)
}

// SetScriptURL sets the script URL in the database
func (s *PlausibleStore) SetScriptURL(url string) error {
	return s.settings.SetSetting(entities.SettingKeyPlausibleScriptURL, url)
}

// ClearSettings removes all Plausible settings from the database, reverting to env/defaults
func (s *PlausibleStore) ClearSettings() error {
	keys := []string{
		entities.SettingKeyPlausibleEnabled,
		entities.SettingKeyPlausibleDomain,
		entities.SettingKeyPlausibleScriptURL,
	}
	for _, key := range keys {
		if err := s.settings.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}

// GenerateScriptTag returns safe HTML for the Plausible script tag
func GenerateScriptTag(cfg *PlausibleConfig) template.HTML {
	if cfg == nil || !cfg.Enabled || cfg.Domain == "" {
		return ""
	}
	return template.HTML(`<script defer data-domain="` + template.HTMLEscapeString(cfg.Domain) + `" src="` + template.HTMLEscapeString(cfg.ScriptURL) + `"></script>`)
}
