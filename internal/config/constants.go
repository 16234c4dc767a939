package config

import (
	"errors"
	"io/fs"
)

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./adminauth.db"

	// DefaultIdentityBaseURL points at a local admin identity service
	DefaultIdentityBaseURL = "http://localhost:1337"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
