package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenUsable reports whether token can still be presented to the identity
// service. Tokens that are not JWTs carry no expiry and are always usable.
func tokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}
