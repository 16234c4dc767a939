package entities

import "time"

type AuditEventType string

const (
	AuditEventAuthSubmit AuditEventType = "auth_submit"
	AuditEventAuthGuard  AuditEventType = "auth_guard"
	AuditEventAdminSync  AuditEventType = "admin_sync"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent records one auth page interaction. No credentials are stored.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RequestID   string         `gorm:"size:36;index" json:"request_id,omitempty"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Mode        string         `gorm:"index;size:32" json:"mode,omitempty"` // "login", "register-admin", ...
	Outcome     string         `gorm:"size:32" json:"outcome,omitempty"`    // classification kind, e.g. "inactive_account"
	HTTPStatus  int            `json:"http_status,omitempty"`
	Target      string         `gorm:"size:500" json:"target,omitempty"` // navigation target, if any
	Description string         `gorm:"size:500" json:"description"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20;index" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
