package flow

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotMounted is returned by operations that need a mounted mode.
var ErrNotMounted = errors.New("auth controller is not mounted")

// Deps are the collaborators of a Controller. Locale, Tracker and Tour are
// optional.
type Deps struct {
	Registry  *Registry
	Transport Transport
	Session   SessionStore
	Navigator Navigator
	Admin     AdminState
	Redirect  RedirectPolicy
	Locale    LocaleChanger
	Tracker   Tracker
	Tour      GuidedTour
}

// Options tune the controller.
type Options struct {
	// NormalizeSubmitting resets the submitting flag on every terminal
	// branch. When false the inactive-account and failed-registration
	// branches leave it set.
	NormalizeSubmitting bool
	// RegistrationToRoot sends registrations without the news opt-in to the
	// root route. When false they follow redirectTo like a sign-in.
	RegistrationToRoot bool
	// SuperAdminRole is the role code that starts the guided tour.
	// Defaults to DefaultSuperAdminRole.
	SuperAdminRole string
	Logger         zerolog.Logger
}

// Controller drives one mounted authentication page. Its methods are safe for
// concurrent use, but collaborators must not call back into it.
type Controller struct {
	deps Deps
	opts Options
	log  zerolog.Logger

	mu         sync.Mutex
	lifecycle  *Lifecycle
	mode       Mode
	descriptor FlowDescriptor
	state      State
	phase      Phase
	submitting bool
	hasAdmin   bool
	query      url.Values
}

// NewController builds an unmounted controller.
func NewController(deps Deps, opts Options) *Controller {
	if deps.Registry == nil {
		deps.Registry = DefaultRegistry()
	}
	if deps.Redirect.Routes == (Routes{}) {
		deps.Redirect.Routes = DefaultRoutes()
	}
	if opts.SuperAdminRole == "" {
		opts.SuperAdminRole = DefaultSuperAdminRole
	}
	return &Controller{
		deps:  deps,
		opts:  opts,
		log:   opts.Logger.With().Str("component", "auth_flow").Logger(),
		state: NewState(),
	}
}

// Mount evaluates the guard for rawMode and, when the page may render, opens
// the request scope and initializes the form. A non-nil target means the
// caller must navigate there instead of rendering.
func (c *Controller) Mount(ctx context.Context, rawMode, rawQuery string) (*Target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle != nil {
		c.lifecycle.Close()
		c.lifecycle = nil
	}

	target, err := c.enter(rawMode, rawQuery)
	if target != nil || err != nil {
		return target, err
	}
	c.lifecycle = NewLifecycle(ctx)
	return nil, nil
}

// ChangeMode switches a mounted controller to another mode. The form state is
// discarded and reinitialized, and any request issued under the previous
// mode is cancelled and its result dropped. When the new mode is guarded the
// controller is left unmounted and the target is returned.
func (c *Controller) ChangeMode(rawMode, rawQuery string) (*Target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle == nil {
		return nil, ErrNotMounted
	}
	c.lifecycle.Advance()
	c.state = Reduce(c.state, Reset{})
	c.phase = PhaseIdle
	c.submitting = false

	target, err := c.enter(rawMode, rawQuery)
	if target != nil || err != nil {
		c.lifecycle.Close()
		c.lifecycle = nil
		c.mode = ""
		c.descriptor = FlowDescriptor{}
	}
	return target, err
}

func (c *Controller) enter(rawMode, rawQuery string) (*Target, error) {
	query, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		query = url.Values{}
	}
	_, hasToken := c.deps.Session.Token()
	hasAdmin := c.deps.Admin.HasAdmin()

	if target, redirect := c.deps.Redirect.Guard(c.deps.Registry, rawMode, hasAdmin, hasToken, rawQuery); redirect {
		c.log.Debug().Str("mode", rawMode).Str("target", target.String()).Msg("auth page guarded")
		return &target, nil
	}

	// Guard passed, so the mode resolves.
	descriptor, _ := c.deps.Registry.ResolveRaw(rawMode)
	c.mode = descriptor.Mode
	c.descriptor = descriptor
	c.state = Init(descriptor)
	c.phase = PhaseIdle
	c.submitting = false
	c.hasAdmin = hasAdmin
	c.query = query
	return nil, nil
}

// Change records a field edit.
func (c *Controller) Change(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, SetField{Name: name, Value: value})
}

// Unmount cancels any in-flight request. Results arriving afterwards are
// discarded.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle != nil {
		c.lifecycle.Close()
		c.lifecycle = nil
	}
}

// State returns a copy of the form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Submitting reports the submitting flag.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Phase returns the submit phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Mode returns the mounted mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Descriptor returns the descriptor of the mounted mode.
func (c *Controller) Descriptor() FlowDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.descriptor.clone()
}
