package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/tasks"
)

// DefaultEventsURL is the Plausible Events API endpoint.
const DefaultEventsURL = "https://plausible.io/api/event"

// EventsClient posts custom events to the Plausible Events API.
type EventsClient struct {
	httpClient *http.Client
	store      *PlausibleStore
	log        zerolog.Logger
}

func NewEventsClient(store *PlausibleStore, logger zerolog.Logger) *EventsClient {
	return &EventsClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		store:      store,
		log:        logger.With().Str("component", "analytics").Logger(),
	}
}

type eventRequest struct {
	Name   string            `json:"name"`
	URL    string            `json:"url"`
	Domain string            `json:"domain"`
	Props  map[string]string `json:"props,omitempty"`
}

// SendEvent delivers one event. Events are dropped silently while analytics
// is disabled.
func (c *EventsClient) SendEvent(ctx context.Context, event tasks.TrackEventTask) error {
	cfg := c.store.GetEffectiveConfig()
	if !cfg.Enabled {
		c.log.Debug().Str("event", event.Name).Msg("analytics disabled, dropping event")
		return nil
	}

	domain := event.Domain
	if domain == "" {
		domain = cfg.Domain
	}
	body, err := json.Marshal(eventRequest{
		Name:   event.Name,
		URL:    event.URL,
		Domain: domain,
		Props:  event.Props,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.EventsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	userAgent := event.UserAgent
	if userAgent == "" {
		userAgent = "adminauth"
	}
	req.Header.Set("User-Agent", userAgent)
	if event.IPAddress != "" {
		req.Header.Set("X-Forwarded-For", event.IPAddress)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("events API returned status %d", resp.StatusCode)
	}
	c.log.Debug().Str("event", event.Name).Msg("event delivered")
	return nil
}
