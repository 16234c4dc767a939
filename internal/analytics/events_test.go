package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/tasks"
)

type capturedEvent struct {
	body      eventRequest
	userAgent string
	forwarded string
}

func newEventsServer(t *testing.T, status int) (*httptest.Server, func() []capturedEvent) {
	t.Helper()
	var (
		mu     sync.Mutex
		events []capturedEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body eventRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		events = append(events, capturedEvent{
			body:      body,
			userAgent: r.Header.Get("User-Agent"),
			forwarded: r.Header.Get("X-Forwarded-For"),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedEvent(nil), events...)
	}
}

func TestEventsClient_SendEvent(t *testing.T) {
	srv, received := newEventsServer(t, http.StatusAccepted)
	store := setupTestStore(t, config.Plausible{Domain: "admin.example.com", EventsURL: srv.URL})
	client := NewEventsClient(store, zerolog.Nop())

	err := client.SendEvent(context.Background(), tasks.TrackEventTask{
		Name:      flow.EventWillCreateFirstAdmin,
		URL:       "http://admin.example.com/auth/register-admin",
		UserAgent: "Mozilla/5.0",
		IPAddress: "10.0.0.7",
	})
	require.NoError(t, err)

	events := received()
	require.Len(t, events, 1)
	assert.Equal(t, "willCreateFirstAdmin", events[0].body.Name)
	assert.Equal(t, "admin.example.com", events[0].body.Domain)
	assert.Equal(t, "Mozilla/5.0", events[0].userAgent)
	assert.Equal(t, "10.0.0.7", events[0].forwarded)
}

func TestEventsClient_DisabledDropsEvent(t *testing.T) {
	srv, received := newEventsServer(t, http.StatusAccepted)
	store := setupTestStore(t, config.Plausible{EventsURL: srv.URL})
	client := NewEventsClient(store, zerolog.Nop())

	require.NoError(t, client.SendEvent(context.Background(), tasks.TrackEventTask{Name: "x"}))
	assert.Empty(t, received())
}

func TestEventsClient_ServerError(t *testing.T) {
	srv, _ := newEventsServer(t, http.StatusInternalServerError)
	store := setupTestStore(t, config.Plausible{Domain: "admin.example.com", EventsURL: srv.URL})
	client := NewEventsClient(store, zerolog.Nop())

	err := client.SendEvent(context.Background(), tasks.TrackEventTask{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestQueueTracker_DeliversThroughQueue(t *testing.T) {
	srv, received := newEventsServer(t, http.StatusAccepted)
	store := setupTestStore(t, config.Plausible{Domain: "admin.example.com", EventsURL: srv.URL})

	cfg := tasks.DefaultConfig()
	cfg.Workers = 1
	queue, err := tasks.NewClient(filepath.Join(t.TempDir(), "main.db"), cfg,
		tasks.Handlers{Events: NewEventsClient(store, zerolog.Nop())}, zerolog.Nop())
	require.NoError(t, err)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Start(ctx)

	var tracker flow.Tracker = NewQueueTracker(queue, zerolog.Nop()).
		ForRequest("http://admin.example.com/auth/register-admin", "curl/8", "192.0.2.1")
	tracker.Track(flow.EventDidLaunchGuidedTour)

	require.Eventually(t, func() bool { return len(received()) == 1 }, 5*time.Second, 20*time.Millisecond)
	ev := received()[0]
	assert.Equal(t, "didLaunchGuidedtour", ev.body.Name)
	assert.Equal(t, "http://admin.example.com/auth/register-admin", ev.body.URL)
	assert.Equal(t, "192.0.2.1", ev.forwarded)
}

func TestQueueTracker_NilQueue(t *testing.T) {
	assert.NotPanics(t, func() {
		NewQueueTracker(nil, zerolog.Nop()).Track("x")
	})
}
