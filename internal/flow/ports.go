package flow

import "context"

// Role is a role attached to an admin user.
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// User is the admin user returned by a successful authentication.
type User struct {
	ID               int    `json:"id"`
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname,omitempty"`
	Username         string `json:"username,omitempty"`
	Email            string `json:"email"`
	PreferedLanguage string `json:"preferedLanguage,omitempty"`
	IsActive         bool   `json:"isActive"`
	Roles            []Role `json:"roles,omitempty"`
}

// HasRole reports whether u holds the role with the given code.
func (u User) HasRole(code string) bool {
	for _, r := range u.Roles {
		if r.Code == code {
			return true
		}
	}
	return false
}

// AuthResponse is the payload of a successful authentication call.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Transport performs the single POST of a submit. Failures where the server
// responded must be returned as *ResponseError; any other error is treated as
// "no response".
type Transport interface {
	Post(ctx context.Context, path string, body map[string]any) (*AuthResponse, error)
}

// SessionStore persists the signed-in session.
type SessionStore interface {
	SetToken(token string, remember bool) error
	SetUserInfo(user User, remember bool) error
	Token() (string, bool)
	SetFlag(key string, value bool, remember bool) error
	Flag(key string) (value bool, ok bool)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(target Target)
}

// LocaleChanger switches the interface language.
type LocaleChanger interface {
	ChangeLocale(code string)
}

// Tracker records usage events.
type Tracker interface {
	Track(event string)
}

// GuidedTour controls the onboarding tour.
type GuidedTour interface {
	SetSkipped(skipped bool)
}

// AdminState knows whether the first admin has been created.
type AdminState interface {
	HasAdmin() bool
	SetHasAdmin(hasAdmin bool) error
}

// Usage events emitted by the registration pages.
const (
	EventWillCreateFirstAdmin   = "willCreateFirstAdmin"
	EventDidNotCreateFirstAdmin = "didNotCreateFirstAdmin"
	EventDidLaunchGuidedTour    = "didLaunchGuidedtour"
)

const (
	// FlagGuidedTourSkipped is the session flag cleared when a super admin
	// registers.
	FlagGuidedTourSkipped = "GUIDED_TOUR_SKIPPED"
	// DefaultSuperAdminRole is the role code that starts the guided tour.
	DefaultSuperAdminRole = "strapi-super-admin"
)
