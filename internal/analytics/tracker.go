package analytics

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/tasks"
)

// EventQueue accepts usage events for background delivery.
type EventQueue interface {
	TrackEvent(ctx context.Context, event tasks.TrackEventTask) error
}

// QueueTracker records usage events by enqueueing delivery tasks, so a slow
// analytics backend never holds up an auth request.
type QueueTracker struct {
	queue EventQueue
	log   zerolog.Logger

	url       string
	userAgent string
	ipAddress string
}

func NewQueueTracker(queue EventQueue, logger zerolog.Logger) *QueueTracker {
	return &QueueTracker{
		queue: queue,
		log:   logger.With().Str("component", "analytics").Logger(),
	}
}

// ForRequest returns a tracker that attributes events to one page view.
func (t *QueueTracker) ForRequest(url, userAgent, ipAddress string) *QueueTracker {
	scoped := *t
	scoped.url = url
	scoped.userAgent = userAgent
	scoped.ipAddress = ipAddress
	return &scoped
}

// Track enqueues event. Enqueue failures are logged and dropped.
func (t *QueueTracker) Track(event string) {
	if t.queue == nil {
		return
	}
	task := tasks.TrackEventTask{
		Name:      event,
		URL:       t.url,
		UserAgent: t.userAgent,
		IPAddress: t.ipAddress,
	}
	if err := t.queue.TrackEvent(context.Background(), task); err != nil {
		t.log.Warn().Err(err).Str("event", event).Msg("failed to enqueue usage event")
	}
}
