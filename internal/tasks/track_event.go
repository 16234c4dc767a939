package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// EventSender delivers one usage event to the analytics backend.
type EventSender interface {
	SendEvent(ctx context.Context, event TrackEventTask) error
}

// TrackEventTask delivers a usage event emitted by the auth pages.
type TrackEventTask struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Domain    string            `json:"domain"`
	Props     map[string]string `json:"props,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
}

// Config returns the queue configuration for usage events.
func (t TrackEventTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "track_event",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
		},
	}
}

// TrackEventProcessor creates a processor function for TrackEventTask.
func TrackEventProcessor(sender EventSender) backlite.QueueProcessor[TrackEventTask] {
	return func(ctx context.Context, task TrackEventTask) error {
		if sender == nil {
			return fmt.Errorf("event sender not configured")
		}
		if err := sender.SendEvent(ctx, task); err != nil {
			return fmt.Errorf("send event %q: %w", task.Name, err)
		}
		return nil
	}
}

// TrackEvent enqueues a usage event for delivery.
func (c *Client) TrackEvent(ctx context.Context, event TrackEventTask) error {
	if !c.events {
		return ErrQueueDisabled
	}
	if _, err := c.client.Add(event).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue event %q: %w", event.Name, err)
	}
	return nil
}
