package flow

import (
	"errors"
	"fmt"
)

// Mode identifies one of the authentication pages.
type Mode string

const (
	ModeLogin          Mode = "login"
	ModeRegister       Mode = "register"
	ModeRegisterAdmin  Mode = "register-admin"
	ModeForgotPassword Mode = "forgot-password"
	ModeResetPassword  Mode = "reset-password"
)

// ErrUnknownMode is returned when a route parameter names no known mode.
var ErrUnknownMode = errors.New("unknown auth mode")

var allModes = []Mode{
	ModeLogin,
	ModeRegister,
	ModeRegisterAdmin,
	ModeForgotPassword,
	ModeResetPassword,
}

// Modes returns the fixed set of modes in display order.
func Modes() []Mode {
	out := make([]Mode, len(allModes))
	copy(out, allModes)
	return out
}

// ParseMode validates a raw route parameter.
func ParseMode(raw string) (Mode, error) {
	m := Mode(raw)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
	return m, nil
}

// Valid reports whether m belongs to the fixed mode set.
func (m Mode) Valid() bool {
	for _, known := range allModes {
		if m == known {
			return true
		}
	}
	return false
}

// IsRegistration reports whether m creates a user.
func (m Mode) IsRegistration() bool {
	return m == ModeRegister || m == ModeRegisterAdmin
}

func (m Mode) String() string {
	return string(m)
}
