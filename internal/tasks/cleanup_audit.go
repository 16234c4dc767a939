package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

const defaultAuditRetention = 30 * 24 * time.Hour

// AuditEventCleaner deletes auth attempt events older than retention.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PurgeAuditEventsTask deletes auth attempt events older than Retention.
// A task of the running process's chain enqueues its successor Every after
// it runs; tasks left over from earlier processes run once.
type PurgeAuditEventsTask struct {
	Retention time.Duration `json:"retention"`
	Every     time.Duration `json:"every,omitempty"`
	Chain     string        `json:"chain,omitempty"`
}

func (t PurgeAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ScheduleAuditPurge enqueues an immediate purge that repeats every interval
// for as long as this client runs. A zero interval purges once.
func (c *Client) ScheduleAuditPurge(ctx context.Context, retention, every time.Duration) error {
	if !c.purges {
		return ErrQueueDisabled
	}
	task := PurgeAuditEventsTask{Retention: retention, Every: every, Chain: c.chain}
	if _, err := c.client.Add(task).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue audit purge: %w", err)
	}
	return nil
}

func (c *Client) purgeAuditEvents(cleaner AuditEventCleaner) backlite.QueueProcessor[PurgeAuditEventsTask] {
	return func(ctx context.Context, task PurgeAuditEventsTask) error {
		retention := task.Retention
		if retention <= 0 {
			retention = defaultAuditRetention
		}

		deleted, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("purge audit events: %w", err)
		}
		c.log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("purged audit events")

		if task.Every <= 0 || task.Chain != c.chain {
			return nil
		}
		if _, err := c.client.Add(task).Ctx(ctx).Wait(task.Every).Save(); err != nil {
			return fmt.Errorf("schedule next audit purge: %w", err)
		}
		return nil
	}
}
