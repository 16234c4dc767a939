package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnmounted is the cancellation cause used when a controller unmounts.
	ErrUnmounted = errors.New("controller unmounted")
	// ErrModeChanged cancels a request issued under a superseded mode.
	ErrModeChanged = errors.New("auth mode changed")
	// ErrRequestInFlight is returned when a mount already has a tracked request.
	ErrRequestInFlight = errors.New("request already in flight")
)

// Lifecycle owns the cancellation scope of one mounted controller. It is
// created on mount and closed on unmount; every transport call runs under a
// request tracked by it.
type Lifecycle struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelCauseFunc
	generation uint64
	inflight   *Tracked
}

// NewLifecycle opens a cancellation scope under parent.
func NewLifecycle(parent context.Context) *Lifecycle {
	ctx, cancel := context.WithCancelCause(parent)
	return &Lifecycle{ctx: ctx, cancel: cancel}
}

// Tracked is one outstanding request.
type Tracked struct {
	ID         string
	Mode       Mode
	generation uint64
	ctx        context.Context
	cancel     context.CancelCauseFunc
	stop       func() bool
	owner      *Lifecycle
}

// Track starts a request for mode. The returned context is cancelled when ctx
// is, when the mode changes or when the lifecycle is closed. Callers must call
// Done when the request finishes.
func (l *Lifecycle) Track(ctx context.Context, mode Mode) (*Tracked, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ctx.Err(); err != nil {
		return nil, context.Cause(l.ctx)
	}
	if l.inflight != nil {
		return nil, ErrRequestInFlight
	}

	reqCtx, cancel := context.WithCancelCause(l.ctx)
	stop := context.AfterFunc(ctx, func() {
		cancel(context.Cause(ctx))
	})

	t := &Tracked{
		ID:         uuid.NewString(),
		Mode:       mode,
		generation: l.generation,
		ctx:        reqCtx,
		cancel:     cancel,
		stop:       stop,
		owner:      l,
	}
	l.inflight = t
	return t, nil
}

// Context is the context the transport call must run under.
func (t *Tracked) Context() context.Context {
	return t.ctx
}

// Current reports whether the request's result may still be applied: the
// lifecycle is open and no mode change happened since it was issued.
func (t *Tracked) Current() bool {
	l := t.owner
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx.Err() == nil && t.generation == l.generation
}

// Done releases the request slot.
func (t *Tracked) Done() {
	t.stop()
	t.cancel(context.Canceled)

	l := t.owner
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight == t {
		l.inflight = nil
	}
}

// Advance marks a mode change: the outstanding request, if any, is cancelled
// and its result will be discarded.
func (l *Lifecycle) Advance() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	if l.inflight != nil {
		l.inflight.cancel(ErrModeChanged)
		l.inflight = nil
	}
}

// Cancel cancels the scope and any request under it with reason.
func (l *Lifecycle) Cancel(reason error) {
	l.cancel(reason)
}

// Close cancels the scope with ErrUnmounted.
func (l *Lifecycle) Close() {
	l.Cancel(ErrUnmounted)
}

// Err returns the cancellation cause, or nil while the scope is open.
func (l *Lifecycle) Err() error {
	if l.ctx.Err() == nil {
		return nil
	}
	return context.Cause(l.ctx)
}
