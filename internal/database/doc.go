// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── settings/        # Key/value application settings
//	└── audit/           # Auth attempt audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over the shared *gorm.DB:
//
//	db, err := database.NewDatabase(cfg.Database.Path, logger)
//	settingsRepo := settings.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
package database
