package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/adminauth/internal/flow"
)

// LocaleCookie carries the interface language chosen at sign-in.
const LocaleCookie = "adminauth_locale"

// recordingNavigator keeps the last navigation target for the response.
type recordingNavigator struct {
	mu     sync.Mutex
	target *flow.Target
}

func (n *recordingNavigator) Navigate(t flow.Target) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = &t
}

func (n *recordingNavigator) Target() *flow.Target {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

// cookieLocale switches the language by setting a cookie on the response.
type cookieLocale struct {
	c      *gin.Context
	secure bool
}

func (l cookieLocale) ChangeLocale(code string) {
	l.c.SetSameSite(http.SameSiteLaxMode)
	l.c.SetCookie(LocaleCookie, code, 365*24*60*60, "/", "", l.secure, false)
}
