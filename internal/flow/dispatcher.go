package flow

import (
	"context"
	"fmt"
	"net/url"
)

// Phase is the submit state of a mounted page.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Outcome describes how a submit ended.
type Outcome struct {
	RequestID string
	Mode      Mode
	Phase     Phase
	Kind      ErrorKind
	Status    int
	// Target is set when the submit navigated.
	Target *Target
	// Stale is set when the result arrived after a mode change or unmount
	// and was discarded.
	Stale bool
}

// Submit sends the current form for the mounted mode. Transport failures are
// reported through the form state and the returned Outcome; the error is
// non-nil only when nothing could be sent or the session could not be saved.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.lifecycle == nil {
		c.mu.Unlock()
		return Outcome{}, ErrNotMounted
	}
	req, err := c.lifecycle.Track(ctx, c.mode)
	if err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	defer req.Done()

	mode := c.mode
	descriptor := c.descriptor.clone()
	payload := clonePayload(c.state.ModifiedData)
	hadAdmin := c.hasAdmin
	query := c.query
	c.submitting = true
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	c.log.Debug().Str("mode", mode.String()).Str("request_id", req.ID).Msg("submitting auth form")

	switch mode {
	case ModeLogin:
		return c.login(req, descriptor, payload, query)
	case ModeRegister, ModeRegisterAdmin:
		return c.register(req, descriptor, payload, query, hadAdmin)
	case ModeForgotPassword:
		return c.forgotPassword(req, descriptor, payload)
	case ModeResetPassword:
		return c.resetPassword(req, descriptor, payload, query)
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func (c *Controller) login(req *Tracked, d FlowDescriptor, payload Payload, query url.Values) (Outcome, error) {
	resp, err := c.deps.Transport.Post(req.Context(), d.Path(), Omit(payload, d.FieldsToOmit))

	c.mu.Lock()
	defer c.mu.Unlock()
	out := Outcome{RequestID: req.ID, Mode: req.Mode}
	if !req.Current() {
		return c.stale(out), nil
	}

	if err != nil {
		cl := ClassifyLogin(err)
		out.Kind, out.Status = cl.Kind, cl.Status
		switch cl.Kind {
		case KindInactiveAccount:
			out.Target = c.navigate(c.deps.Redirect.Routes.Inactive)
			c.state = Reduce(c.state, Reset{})
			return c.finish(out, PhaseFailed, c.opts.NormalizeSubmitting), nil
		case KindGenericMessage:
			c.state = Reduce(c.state, SetFormErrors{Errors: FormErrors{KeyErrorMessage: cl.Message}})
		}
		return c.finish(out, PhaseFailed, true), nil
	}

	if lang := resp.User.PreferedLanguage; lang != "" && c.deps.Locale != nil {
		c.deps.Locale.ChangeLocale(lang)
	}
	remember := isTrue(Lookup(payload, "rememberMe"))
	if err := c.persistSession(resp, remember); err != nil {
		return c.finish(out, PhaseFailed, true), err
	}
	out.Target = c.navigateTo(c.deps.Redirect.AfterSuccess(query))
	return c.finish(out, PhaseSucceeded, true), nil
}

func (c *Controller) register(req *Tracked, d FlowDescriptor, payload Payload, query url.Values, hadAdmin bool) (Outcome, error) {
	c.track(EventWillCreateFirstAdmin)
	resp, err := c.deps.Transport.Post(req.Context(), d.Path(), Omit(payload, d.FieldsToOmit))

	c.mu.Lock()
	defer c.mu.Unlock()
	out := Outcome{RequestID: req.ID, Mode: req.Mode}
	if !req.Current() {
		return c.stale(out), nil
	}

	if err != nil {
		c.track(EventDidNotCreateFirstAdmin)
		cl := ClassifyRegistration(err)
		out.Kind, out.Status = cl.Kind, cl.Status
		if cl.Kind == KindFieldErrors {
			c.state = Reduce(c.state, SetFormErrors{Errors: FormErrors{KeyAPIErrors: cl.Fields}})
		}
		return c.finish(out, PhaseFailed, c.opts.NormalizeSubmitting), nil
	}

	if err := c.persistSession(resp, false); err != nil {
		return c.finish(out, PhaseFailed, true), err
	}
	c.submitting = false
	if err := c.deps.Admin.SetHasAdmin(true); err != nil {
		c.log.Warn().Err(err).Msg("failed to record admin existence")
	}
	c.hasAdmin = true

	if resp.User.HasRole(c.opts.SuperAdminRole) {
		if err := c.deps.Session.SetFlag(FlagGuidedTourSkipped, false, false); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear guided tour flag")
		}
		if c.deps.Tour != nil {
			c.deps.Tour.SetSkipped(false)
		}
		c.track(EventDidLaunchGuidedTour)
	}

	if optedIn(req.Mode, payload) {
		out.Target = c.navigateTo(c.deps.Redirect.UseCase(hadAdmin))
		return c.finish(out, PhaseSucceeded, true), nil
	}
	if c.opts.RegistrationToRoot {
		query = nil
	}
	out.Target = c.navigateTo(c.deps.Redirect.AfterSuccess(query))
	return c.finish(out, PhaseSucceeded, true), nil
}

func (c *Controller) forgotPassword(req *Tracked, d FlowDescriptor, payload Payload) (Outcome, error) {
	_, err := c.deps.Transport.Post(req.Context(), d.Path(), Omit(payload, d.FieldsToOmit))

	c.mu.Lock()
	defer c.mu.Unlock()
	out := Outcome{RequestID: req.ID, Mode: req.Mode}
	if !req.Current() {
		return c.stale(out), nil
	}

	if err != nil {
		cl := ClassifyForgotPassword(err)
		out.Kind, out.Status = cl.Kind, cl.Status
		c.state = Reduce(c.state, SetFormErrors{Errors: FormErrors{KeyErrorMessage: cl.Message}})
		return c.finish(out, PhaseFailed, true), nil
	}
	out.Target = c.navigate(c.deps.Redirect.Routes.ForgotPasswordSuccess)
	return c.finish(out, PhaseSucceeded, true), nil
}

func (c *Controller) resetPassword(req *Tracked, d FlowDescriptor, payload Payload, query url.Values) (Outcome, error) {
	body := Omit(payload, d.FieldsToOmit)
	if query.Has("code") {
		body["resetPasswordToken"] = query.Get("code")
	} else {
		body["resetPasswordToken"] = nil
	}
	resp, err := c.deps.Transport.Post(req.Context(), d.Path(), body)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := Outcome{RequestID: req.ID, Mode: req.Mode}
	if !req.Current() {
		return c.stale(out), nil
	}

	if err != nil {
		cl := ClassifyResetPassword(err)
		out.Kind, out.Status = cl.Kind, cl.Status
		if cl.Kind == KindRequestError {
			c.state = Reduce(c.state, SetRequestError{Message: cl.Message, Status: cl.Status})
			c.state = Reduce(c.state, SetFormErrors{Errors: FormErrors{KeyErrorMessage: cl.Message}})
		}
		return c.finish(out, PhaseFailed, true), nil
	}

	if err := c.persistSession(resp, false); err != nil {
		return c.finish(out, PhaseFailed, true), err
	}
	out.Target = c.navigate(c.deps.Redirect.root())
	return c.finish(out, PhaseSucceeded, true), nil
}

func optedIn(mode Mode, payload Payload) bool {
	if mode == ModeRegister {
		return isTrue(Lookup(payload, "userInfo.news"))
	}
	return isTrue(Lookup(payload, "news"))
}

func (c *Controller) persistSession(resp *AuthResponse, remember bool) error {
	if err := c.deps.Session.SetToken(resp.Token, remember); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	if err := c.deps.Session.SetUserInfo(resp.User, remember); err != nil {
		return fmt.Errorf("failed to store user info: %w", err)
	}
	return nil
}

func (c *Controller) finish(out Outcome, phase Phase, resetSubmitting bool) Outcome {
	c.phase = phase
	if resetSubmitting {
		c.submitting = false
	}
	out.Phase = phase
	if out.Kind != KindNone {
		c.log.Info().Str("mode", out.Mode.String()).Str("kind", out.Kind.String()).Int("status", out.Status).Msg("auth submit failed")
	}
	return out
}

func (c *Controller) stale(out Outcome) Outcome {
	c.log.Debug().Str("mode", out.Mode.String()).Str("request_id", out.RequestID).Msg("discarding stale auth response")
	out.Stale = true
	return out
}

func (c *Controller) navigate(pathname string) *Target {
	return c.navigateTo(Target{Pathname: pathname})
}

func (c *Controller) navigateTo(t Target) *Target {
	c.deps.Navigator.Navigate(t)
	return &t
}

func (c *Controller) track(event string) {
	if c.deps.Tracker != nil {
		c.deps.Tracker.Track(event)
	}
}
