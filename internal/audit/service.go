package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/database/audit"
	"github.com/mrlokans/adminauth/internal/entities"
	"github.com/mrlokans/adminauth/internal/flow"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  zerolog.Logger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "audit").Logger(),
	}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.log.Error().Err(err).Str("event_type", string(event.EventType)).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until pending asynchronous writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Client identifies the caller of an auth page.
type Client struct {
	IPAddress string
	UserAgent string
}

// LogSubmit records the outcome of an auth form submission.
func (s *Service) LogSubmit(out flow.Outcome, client Client, err error) {
	event := &entities.AuditEvent{
		RequestID:   out.RequestID,
		EventType:   entities.AuditEventAuthSubmit,
		Mode:        out.Mode.String(),
		Outcome:     out.Kind.String(),
		HTTPStatus:  out.Status,
		Description: "Submitted " + out.Mode.String() + " form",
		IPAddress:   client.IPAddress,
		UserAgent:   truncate(client.UserAgent, 500),
		Status:      entities.AuditStatusSuccess,
	}
	if out.Target != nil {
		event.Target = truncate(out.Target.String(), 500)
	}
	if out.Stale {
		event.Description = "Discarded stale " + out.Mode.String() + " response"
	}
	if out.Phase == flow.PhaseFailed {
		event.Status = entities.AuditStatusFailed
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogGuard records a guard redirect of an auth page.
func (s *Service) LogGuard(rawMode string, target flow.Target, client Client) {
	s.LogAsync(&entities.AuditEvent{
		EventType:   entities.AuditEventAuthGuard,
		Mode:        truncate(rawMode, 32),
		Target:      truncate(target.String(), 500),
		Description: "Redirected before rendering",
		IPAddress:   client.IPAddress,
		UserAgent:   truncate(client.UserAgent, 500),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogAdminSync records a refresh of the admin state.
func (s *Service) LogAdminSync(hasAdmin bool, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventAdminSync,
		Description: "Admin state refreshed",
		Status:      entities.AuditStatusSuccess,
	}
	if hasAdmin {
		event.Description = "Admin state refreshed: admin exists"
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// Summary counts submit outcomes within the window.
func (s *Service) Summary(window time.Duration) ([]audit.OutcomeCount, error) {
	return s.repo.CountOutcomes(time.Now().Add(-window))
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
