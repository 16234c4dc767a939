package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

// ErrQueueDisabled is returned when enqueueing to a queue that has no handler.
var ErrQueueDisabled = errors.New("queue has no handler")

// Handlers are the backends the queues deliver to. A nil handler leaves its
// queue unregistered.
type Handlers struct {
	Events EventSender
	Audit  AuditEventCleaner
}

// Client runs the background queues of the auth service: usage event
// delivery and the audit purge.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	log    zerolog.Logger

	// chain identifies the purge schedule owned by this process.
	chain  string
	events bool
	purges bool

	mu      sync.RWMutex
	started bool
}

// NewClient opens the queue database next to the main one, with a "-tasks"
// suffix, and registers a queue for every configured handler.
func NewClient(mainDBPath string, cfg Config, h Handlers, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("component", "tasks").Logger()

	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	tasksDBPath := filepath.Join(dir, base[:len(base)-len(ext)]+"-tasks"+ext)

	db, err := sql.Open("sqlite3", tasksDBPath+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &zerologAdapter{log: logger},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	c := &Client{
		client: client,
		db:     db,
		config: cfg,
		log:    logger,
		chain:  uuid.NewString(),
	}
	if h.Events != nil {
		client.Register(backlite.NewQueue(TrackEventProcessor(h.Events)))
		c.events = true
	}
	if h.Audit != nil {
		client.Register(backlite.NewQueue(c.purgeAuditEvents(h.Audit)))
		c.purges = true
	}
	return c, nil
}

// Start processes tasks until ctx is done or Stop is called. It blocks only
// while the workers are being started.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.log.Info().Int("workers", c.config.Workers).Bool("events", c.events).Bool("audit_purge", c.purges).Msg("task queue started")
	c.client.Start(ctx)
}

// Stop waits for running tasks. It reports whether they all finished
// before ctx expired.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return true
	}

	success := c.client.Stop(ctx)
	if success {
		c.log.Info().Msg("task queue stopped")
	} else {
		c.log.Warn().Msg("task queue stopped before pending usage events were delivered")
	}
	return success
}

// Close releases the queue database. Call it after Stop.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// zerologAdapter implements backlite.Logger.
type zerologAdapter struct {
	log zerolog.Logger
}

func (l *zerologAdapter) Info(message string, params ...any) {
	l.log.Debug().Fields(params).Msg(message)
}

func (l *zerologAdapter) Error(message string, params ...any) {
	l.log.Error().Fields(params).Msg(message)
}
