package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Identity
		Database
		UI
		Tasks
		Auth
		Audit
		AdminSync
		Plausible
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Identity struct {
		BaseURL     string        // Admin identity service, e.g. "http://localhost:1337"
		Timeout     time.Duration // Per-request HTTP timeout
		InitRetries int           // Attempts for the /admin/init check
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Base64 AES-256 key sealing remembered CLI sessions; else read from
		// or created at SessionKeyFile (default: next to the database)
		SessionKey     string
		SessionKeyFile string

		RedirectLocalOnly   bool   // Reject off-site redirectTo targets
		NormalizeSubmitting bool   // Reset the submitting flag on every terminal branch
		RegistrationToRoot  bool   // Ignore redirectTo after registration without opt-in
		SuperAdminRole      string // Role code that starts the guided tour
		FormsFile           string // Optional YAML/JSON form overrides

		// Failed submits allowed per client and email before lockout
		MaxAttempts     int
		RateLimitWindow time.Duration
		LockoutDuration time.Duration
	}
	Audit struct {
		RetentionDays int           // Days to keep auth attempt events (default: 30)
		PurgeInterval time.Duration // How often old events are purged (default: 24h)
	}
	AdminSync struct {
		Enabled  bool
		Schedule string // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Plausible struct {
		Domain    string // Domain registered in Plausible (e.g., "admin.myapp.com")
		ScriptURL string // Script URL (default: "https://plausible.io/js/script.js")
		EventsURL string // Events API (default: "https://plausible.io/api/event")
	}
	Log struct {
		Level   string // debug, info, warn, error
		Format  string // console or json
		NoColor bool
	}
)

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set take precedence. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Identity service defaults
	v.SetDefault("identity_base_url", DefaultIdentityBaseURL)
	v.SetDefault("identity_timeout", "15s")
	v.SetDefault("identity_init_retries", 3)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_redirect_local_only", true)
	v.SetDefault("auth_normalize_submitting", false)
	v.SetDefault("auth_registration_to_root", false)
	v.SetDefault("auth_super_admin_role", "strapi-super-admin")
	v.SetDefault("auth_forms_file", "")
	v.SetDefault("auth_max_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_purge_interval", "24h")

	v.SetDefault("admin_sync_enabled", true)
	v.SetDefault("admin_sync_schedule", "*/5 * * * *") // Every 5 minutes

	// Plausible Analytics defaults
	v.SetDefault("plausible_domain", "")
	v.SetDefault("plausible_script_url", "https://plausible.io/js/script.js")
	v.SetDefault("plausible_events_url", "https://plausible.io/api/event")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_no_color", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Identity: Identity{
			BaseURL:     v.GetString("IDENTITY_BASE_URL"),
			Timeout:     v.GetDuration("IDENTITY_TIMEOUT"),
			InitRetries: v.GetInt("IDENTITY_INIT_RETRIES"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			SessionSecret:       v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:     v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			SessionKey:          v.GetString("AUTH_SESSION_KEY"),
			SessionKeyFile:      v.GetString("AUTH_SESSION_KEY_FILE"),
			RedirectLocalOnly:   v.GetBool("AUTH_REDIRECT_LOCAL_ONLY"),
			NormalizeSubmitting: v.GetBool("AUTH_NORMALIZE_SUBMITTING"),
			RegistrationToRoot:  v.GetBool("AUTH_REGISTRATION_TO_ROOT"),
			SuperAdminRole:      v.GetString("AUTH_SUPER_ADMIN_ROLE"),
			FormsFile:           v.GetString("AUTH_FORMS_FILE"),
			MaxAttempts:         v.GetInt("AUTH_MAX_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			PurgeInterval: v.GetDuration("AUDIT_PURGE_INTERVAL"),
		},
		AdminSync: AdminSync{
			Enabled:  v.GetBool("ADMIN_SYNC_ENABLED"),
			Schedule: v.GetString("ADMIN_SYNC_SCHEDULE"),
		},
		Plausible: Plausible{
			Domain:    v.GetString("PLAUSIBLE_DOMAIN"),
			ScriptURL: v.GetString("PLAUSIBLE_SCRIPT_URL"),
			EventsURL: v.GetString("PLAUSIBLE_EVENTS_URL"),
		},
		Log: Log{
			Level:   v.GetString("LOG_LEVEL"),
			Format:  v.GetString("LOG_FORMAT"),
			NoColor: v.GetBool("LOG_NO_COLOR"),
		},
	}
}
