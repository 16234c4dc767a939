package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/identity"
)

// AdminChecker asks the identity service whether an admin exists.
type AdminChecker interface {
	Init(ctx context.Context) (*identity.InitInfo, error)
}

// AdminRecorder stores the init result.
type AdminRecorder interface {
	RecordAdminCheck(hasAdmin bool, uuid string, at time.Time) error
}

// SyncAuditor records each refresh in the audit trail.
type SyncAuditor interface {
	LogAdminSync(hasAdmin bool, err error)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// AdminSyncScheduler periodically refreshes the persisted "has admin" flag
// from the identity service.
type AdminSyncScheduler struct {
	checker  AdminChecker
	recorder AdminRecorder
	auditor  SyncAuditor
	cfg      config.AdminSync
	log      zerolog.Logger
	now      func() time.Time

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isSyncing bool
}

// NewAdminSyncScheduler creates a new scheduler instance. auditor may be nil.
func NewAdminSyncScheduler(checker AdminChecker, recorder AdminRecorder, auditor SyncAuditor, cfg config.AdminSync, logger zerolog.Logger) *AdminSyncScheduler {
	return &AdminSyncScheduler{
		checker:  checker,
		recorder: recorder,
		auditor:  auditor,
		cfg:      cfg,
		log:      logger.With().Str("component", "admin_sync").Logger(),
		now:      time.Now,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler if sync is enabled. The scheduler stops when
// ctx is cancelled.
func (s *AdminSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Info().Msg("admin sync scheduler disabled")
		return nil
	}
	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule admin sync job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	s.log.Info().Str("schedule", s.cfg.Schedule).Time("next_run", s.cron.Entry(entryID).Next).Msg("admin sync scheduler started")

	context.AfterFunc(ctx, s.Stop)
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *AdminSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	s.log.Info().Msg("admin sync scheduler stopped")
}

// RefreshNow performs one synchronous refresh.
func (s *AdminSyncScheduler) RefreshNow(ctx context.Context) error {
	return s.runSync(ctx)
}

// IsRunning returns whether the scheduler is active
func (s *AdminSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next refresh will occur
func (s *AdminSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *AdminSyncScheduler) runSync(ctx context.Context) error {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.log.Debug().Msg("admin sync skipped, already syncing")
		return nil
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	info, err := s.checker.Init(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("admin sync failed")
		s.logAudit(false, err)
		return fmt.Errorf("check identity service: %w", err)
	}

	if err := s.recorder.RecordAdminCheck(info.HasAdmin, info.UUID, s.now()); err != nil {
		s.logAudit(info.HasAdmin, err)
		return fmt.Errorf("record admin state: %w", err)
	}

	s.log.Debug().Bool("has_admin", info.HasAdmin).Msg("admin state refreshed")
	s.logAudit(info.HasAdmin, nil)
	return nil
}

func (s *AdminSyncScheduler) logAudit(hasAdmin bool, err error) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogAdminSync(hasAdmin, err)
}
