package flow

import (
	"net/url"
	"strings"
)

// Target is a navigation destination. Search includes its leading "?".
type Target struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search,omitempty"`
}

func (t Target) String() string {
	return t.Pathname + t.Search
}

// Routes are the pages the flow navigates to.
type Routes struct {
	Root                  string
	RegisterAdmin         string
	Inactive              string
	ForgotPasswordSuccess string
	UseCase               string
}

// DefaultRoutes returns the admin panel routes.
func DefaultRoutes() Routes {
	return Routes{
		Root:                  "/",
		RegisterAdmin:         "/auth/register-admin",
		Inactive:              "/auth/oops",
		ForgotPasswordSuccess: "/auth/forgot-password-success",
		UseCase:               "/usecase",
	}
}

// RedirectPolicy computes guard and post-success targets. With LocalOnly set,
// redirectTo values that leave the site fall back to the root route.
type RedirectPolicy struct {
	Routes    Routes
	LocalOnly bool
}

// Guard decides whether the page for the raw mode may render. It returns the
// redirect target and true when it may not. rawQuery is forwarded unchanged.
func (p RedirectPolicy) Guard(reg *Registry, rawMode string, hasAdmin, hasToken bool, rawQuery string) (Target, bool) {
	_, resolved := reg.ResolveRaw(rawMode)
	mode := Mode(rawMode)

	if !resolved || (hasAdmin && mode == ModeRegisterAdmin) || hasToken {
		return Target{Pathname: p.root()}, true
	}
	if !hasAdmin && mode != ModeRegisterAdmin {
		return Target{Pathname: p.Routes.RegisterAdmin, Search: search(rawQuery)}, true
	}
	return Target{}, false
}

// AfterSuccess returns the target after a successful sign-in or
// registration: the decoded redirectTo parameter, else the root route.
func (p RedirectPolicy) AfterSuccess(query url.Values) Target {
	redirectTo := query.Get("redirectTo")
	if redirectTo == "" {
		return Target{Pathname: p.root()}
	}
	if decoded, err := url.PathUnescape(redirectTo); err == nil {
		redirectTo = decoded
	}
	if p.LocalOnly && !IsLocalPath(redirectTo) {
		return Target{Pathname: p.root()}
	}
	return splitTarget(redirectTo)
}

// UseCase returns the use-case selection page carrying the admin flag as it
// was before registration.
func (p RedirectPolicy) UseCase(hadAdmin bool) Target {
	s := "false"
	if hadAdmin {
		s = "true"
	}
	return Target{Pathname: p.Routes.UseCase, Search: "?hasAdmin=" + s}
}

func (p RedirectPolicy) root() string {
	if p.Routes.Root == "" {
		return "/"
	}
	return p.Routes.Root
}

// IsLocalPath reports whether path stays on this site.
func IsLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

func search(rawQuery string) string {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	if rawQuery == "" {
		return ""
	}
	return "?" + rawQuery
}

func splitTarget(s string) Target {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return Target{Pathname: s[:i], Search: s[i:]}
	}
	return Target{Pathname: s}
}
