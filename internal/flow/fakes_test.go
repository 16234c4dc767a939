package flow

import (
	"context"
	"sync"
)

type postCall struct {
	path string
	body map[string]any
}

type fakeTransport struct {
	mu      sync.Mutex
	resp    *AuthResponse
	err     error
	calls   []postCall
	started chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Post(ctx context.Context, path string, body map[string]any) (*AuthResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, postCall{path: path, body: body})
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}
	return f.resp, f.err
}

func (f *fakeTransport) lastCall() postCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return postCall{}
	}
	return f.calls[len(f.calls)-1]
}

type tokenWrite struct {
	token    string
	remember bool
}

type fakeSession struct {
	token     string
	tokens    []tokenWrite
	users     []User
	flags     map[string]bool
	flagCalls int
	err       error
}

func newFakeSession() *fakeSession {
	return &fakeSession{flags: map[string]bool{FlagGuidedTourSkipped: true}}
}

func (s *fakeSession) SetToken(token string, remember bool) error {
	if s.err != nil {
		return s.err
	}
	s.tokens = append(s.tokens, tokenWrite{token: token, remember: remember})
	return nil
}

func (s *fakeSession) SetUserInfo(user User, remember bool) error {
	s.users = append(s.users, user)
	return nil
}

func (s *fakeSession) Token() (string, bool) {
	return s.token, s.token != ""
}

func (s *fakeSession) SetFlag(key string, value bool, remember bool) error {
	s.flagCalls++
	s.flags[key] = value
	return nil
}

func (s *fakeSession) Flag(key string) (bool, bool) {
	v, ok := s.flags[key]
	return v, ok
}

type fakeNavigator struct {
	targets []Target
}

func (n *fakeNavigator) Navigate(t Target) {
	n.targets = append(n.targets, t)
}

func (n *fakeNavigator) last() (Target, bool) {
	if len(n.targets) == 0 {
		return Target{}, false
	}
	return n.targets[len(n.targets)-1], true
}

type fakeTracker struct {
	events []string
}

func (t *fakeTracker) Track(event string) {
	t.events = append(t.events, event)
}

type fakeTour struct {
	calls []bool
}

func (t *fakeTour) SetSkipped(skipped bool) {
	t.calls = append(t.calls, skipped)
}

type fakeLocale struct {
	codes []string
}

func (l *fakeLocale) ChangeLocale(code string) {
	l.codes = append(l.codes, code)
}

type fakeAdmin struct {
	hasAdmin bool
	sets     []bool
}

func (a *fakeAdmin) HasAdmin() bool {
	return a.hasAdmin
}

func (a *fakeAdmin) SetHasAdmin(v bool) error {
	a.sets = append(a.sets, v)
	a.hasAdmin = v
	return nil
}

type harness struct {
	transport *fakeTransport
	session   *fakeSession
	navigator *fakeNavigator
	tracker   *fakeTracker
	tour      *fakeTour
	locale    *fakeLocale
	admin     *fakeAdmin
	ctrl      *Controller
}

func newHarness(hasAdmin bool, opts Options) *harness {
	h := &harness{
		transport: &fakeTransport{},
		session:   newFakeSession(),
		navigator: &fakeNavigator{},
		tracker:   &fakeTracker{},
		tour:      &fakeTour{},
		locale:    &fakeLocale{},
		admin:     &fakeAdmin{hasAdmin: hasAdmin},
	}
	h.ctrl = NewController(Deps{
		Registry:  DefaultRegistry(),
		Transport: h.transport,
		Session:   h.session,
		Navigator: h.navigator,
		Admin:     h.admin,
		Redirect:  RedirectPolicy{Routes: DefaultRoutes()},
		Locale:    h.locale,
		Tracker:   h.tracker,
		Tour:      h.tour,
	}, opts)
	return h
}
