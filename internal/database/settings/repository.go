// Package settings provides database operations for application settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	value, ok, err := repo.Get(entities.SettingKeyHasAdmin)
package settings

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/adminauth/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Get returns the value stored under key. ok is false when the key is unset.
func (r *Repository) Get(key string) (value string, ok bool, err error) {
	setting, err := r.GetSetting(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	return r.upsert(r.db, key, value)
}

// SetSettings writes several settings in one transaction.
func (r *Repository) SetSettings(values map[string]string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if err := r.upsert(tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) upsert(db *gorm.DB, key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// DeletePrefix removes every setting whose key starts with prefix.
func (r *Repository) DeletePrefix(prefix string) error {
	return r.db.Where("key LIKE ?", prefix+"%").Delete(&entities.Setting{}).Error
}
