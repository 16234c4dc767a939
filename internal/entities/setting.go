package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Admin state, refreshed from the identity service
	SettingKeyHasAdmin       = "admin_has_admin"
	SettingKeyAdminUUID      = "admin_uuid"
	SettingKeyAdminCheckedAt = "admin_checked_at"

	// Plausible Analytics settings
	SettingKeyPlausibleEnabled   = "plausible_enabled"
	SettingKeyPlausibleDomain    = "plausible_domain"
	SettingKeyPlausibleScriptURL = "plausible_script_url"

	// Terminal client session
	SettingKeySessionToken      = "session_token"
	SettingKeySessionUser       = "session_user"
	SettingKeySessionRememberMe = "session_remember_me"
	SettingKeySessionFlagPrefix = "session_flag_"
)
