package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/entities"
)

func TestNewDatabase_Migrates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "adminauth.db")

	db, err := NewDatabase(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.DB.Migrator().HasTable(&entities.Setting{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.AuditEvent{}))
	assert.NoError(t, db.Ping())
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "adminauth.db")

	db, err := NewDatabase(dbPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.Setting{Key: entities.SettingKeyHasAdmin, Value: "true"}).Error)
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	var s entities.Setting
	require.NoError(t, db.DB.Where("key = ?", entities.SettingKeyHasAdmin).First(&s).Error)
	assert.Equal(t, "true", s.Value)
}
