package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/adminauth/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows event queries. Zero fields match everything.
type Filter struct {
	EventType entities.AuditEventType
	Mode      string
	Status    entities.AuditStatus
}

func (f Filter) apply(query *gorm.DB) *gorm.DB {
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.Mode != "" {
		query = query.Where("mode = ?", f.Mode)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated audit events, ordered by most recent first.
func (r *Repository) GetEvents(filter Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var events []entities.AuditEvent
	var total int64

	query := filter.apply(r.db.Model(&entities.AuditEvent{}))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// OutcomeCount is the number of events per mode and outcome.
type OutcomeCount struct {
	Mode    string `json:"mode"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// CountOutcomes aggregates submit outcomes since the given time.
func (r *Repository) CountOutcomes(since time.Time) ([]OutcomeCount, error) {
	var counts []OutcomeCount
	err := r.db.Model(&entities.AuditEvent{}).
		Select("mode, outcome, COUNT(*) AS count").
		Where("event_type = ? AND created_at > ?", entities.AuditEventAuthSubmit, since).
		Group("mode, outcome").
		Order("mode, outcome").
		Scan(&counts).Error
	return counts, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}

// GetEventByID retrieves a single audit event by ID.
func (r *Repository) GetEventByID(id uint) (*entities.AuditEvent, error) {
	var event entities.AuditEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
