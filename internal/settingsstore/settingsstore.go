package settingsstore

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/entities"
)

// EnvHasAdmin seeds the admin flag before the first identity check.
const EnvHasAdmin = "ADMIN_HAS_ADMIN"

// AdminStatus describes the stored admin state and where it came from.
type AdminStatus struct {
	HasAdmin  bool      `json:"hasAdmin"`
	Source    string    `json:"source"` // "database", "environment", or "default"
	UUID      string    `json:"uuid,omitempty"`
	CheckedAt time.Time `json:"checkedAt,omitempty"`
}

// AdminStore persists whether the first admin exists.
// Priority: database > environment > default
type AdminStore struct {
	settings *settings.Repository

	// serializes read-modify-write of the admin keys
	mu sync.Mutex
}

func New(repo *settings.Repository) *AdminStore {
	return &AdminStore{settings: repo}
}

// HasAdmin reports whether an admin account is known to exist.
func (s *AdminStore) HasAdmin() bool {
	return s.Status().HasAdmin
}

// SetHasAdmin records the admin flag in the database.
func (s *AdminStore) SetHasAdmin(hasAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SetSetting(entities.SettingKeyHasAdmin, strconv.FormatBool(hasAdmin))
}

// RecordAdminCheck stores the result of an identity service check.
func (s *AdminStore) RecordAdminCheck(hasAdmin bool, uuid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SetSettings(map[string]string{
		entities.SettingKeyHasAdmin:       strconv.FormatBool(hasAdmin),
		entities.SettingKeyAdminUUID:      uuid,
		entities.SettingKeyAdminCheckedAt: at.UTC().Format(time.RFC3339),
	})
}

// Status returns the effective admin flag with its source.
func (s *AdminStore) Status() AdminStatus {
	var status AdminStatus

	value, ok, err := s.settings.Get(entities.SettingKeyHasAdmin)
	if hasAdmin, perr := strconv.ParseBool(value); err == nil && ok && perr == nil {
		status.HasAdmin, status.Source = hasAdmin, "database"
	} else if hasAdmin, perr := strconv.ParseBool(os.Getenv(EnvHasAdmin)); perr == nil {
		status.HasAdmin, status.Source = hasAdmin, "environment"
	} else {
		status.Source = "default"
	}

	if uuid, ok, err := s.settings.Get(entities.SettingKeyAdminUUID); err == nil && ok {
		status.UUID = uuid
	}
	if raw, ok, err := s.settings.Get(entities.SettingKeyAdminCheckedAt); err == nil && ok {
		if at, perr := time.Parse(time.RFC3339, raw); perr == nil {
			status.CheckedAt = at
		}
	}
	return status
}

// Clear removes the stored admin state, reverting to env/defaults.
func (s *AdminStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{
		entities.SettingKeyHasAdmin,
		entities.SettingKeyAdminUUID,
		entities.SettingKeyAdminCheckedAt,
	} {
		if err := s.settings.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}
