package identity

import (
	"errors"
	"fmt"
)

// ErrRateLimited indicates the identity service rejected the call with 429.
var ErrRateLimited = errors.New("identity service rate limit exceeded")

// ServerError represents a 5xx answer to a non-submit call.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("identity server error: HTTP %d", e.StatusCode)
}
