package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// Queue names, also used as task kinds by the admin endpoints and the scheduler.
const (
	KindPurgeBookTokens = "purge_book_tokens"
	KindCleanupAudit    = "cleanup_audit"
	KindPruneCovers     = "prune_covers"
)

// ErrUnknownKind is returned by NewTask for an unregistered task kind.
var ErrUnknownKind = errors.New("unknown task kind")

// Kinds lists every maintenance task kind in a stable order.
var Kinds = []string{KindPurgeBookTokens, KindCleanupAudit, KindPruneCovers}

const defaultAuditRetentionDays = 30

// TokenPurger deletes expired book tokens.
type TokenPurger interface {
	PurgeExpired() (int64, error)
}

// AuditEventCleaner deletes audit events older than the retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CoverPruner removes cached cover files older than maxAge.
type CoverPruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// Defaults carries the values used when a task is created by kind.
type Defaults struct {
	AuditRetentionDays int
	CoverMaxAge        time.Duration
}

// NewTask builds a task of the given kind filled with the defaults.
func NewTask(kind string, d Defaults) (backlite.Task, error) {
	switch kind {
	case KindPurgeBookTokens:
		return PurgeBookTokensTask{}, nil
	case KindCleanupAudit:
		return CleanupAuditTask{RetentionDays: d.AuditRetentionDays}, nil
	case KindPruneCovers:
		return PruneCoversTask{MaxAgeHours: int(d.CoverMaxAge / time.Hour)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func maintenanceRetention() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}

// PurgeBookTokensTask deletes expired book download tokens.
type PurgeBookTokensTask struct{}

func (t PurgeBookTokensTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        KindPurgeBookTokens,
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention:   maintenanceRetention(),
	}
}

// PurgeBookTokensProcessor creates a processor function for PurgeBookTokensTask.
func PurgeBookTokensProcessor(purger TokenPurger) backlite.QueueProcessor[PurgeBookTokensTask] {
	return func(ctx context.Context, task PurgeBookTokensTask) error {
		if purger == nil {
			return fmt.Errorf("token purger not configured")
		}

		deleted, err := purger.PurgeExpired()
		if err != nil {
			return fmt.Errorf("purge book tokens: %w", err)
		}

		if deleted > 0 {
			log.Printf("[TASK] Purged %d expired book tokens", deleted)
		}
		return nil
	}
}

// NewPurgeBookTokensQueue creates a backlite queue for token purge tasks.
func NewPurgeBookTokensQueue(purger TokenPurger) backlite.Queue {
	return backlite.NewQueue(PurgeBookTokensProcessor(purger))
}

// CleanupAuditTask removes audit events older than RetentionDays.
type CleanupAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        KindCleanupAudit,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   maintenanceRetention(),
	}
}

// CleanupAuditProcessor creates a processor function for CleanupAuditTask.
// A non-positive retention falls back to 30 days.
func CleanupAuditProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditTask] {
	return func(ctx context.Context, task CleanupAuditTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = defaultAuditRetentionDays
		}

		deleted, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		log.Printf("[TASK] Removed %d audit events older than %d days", deleted, days)
		return nil
	}
}

// NewCleanupAuditQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditProcessor(cleaner))
}

// PruneCoversTask evicts resized covers not written for MaxAgeHours.
type PruneCoversTask struct {
	MaxAgeHours int `json:"max_age_hours"`
}

func (t PruneCoversTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        KindPruneCovers,
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention:   maintenanceRetention(),
	}
}

// PruneCoversProcessor creates a processor function for PruneCoversTask.
// A zero age is rejected so a misconfigured task cannot wipe the cache.
func PruneCoversProcessor(pruner CoverPruner) backlite.QueueProcessor[PruneCoversTask] {
	return func(ctx context.Context, task PruneCoversTask) error {
		if pruner == nil {
			return fmt.Errorf("cover pruner not configured")
		}
		if task.MaxAgeHours <= 0 {
			return fmt.Errorf("prune covers: max age must be positive, got %d", task.MaxAgeHours)
		}

		removed, err := pruner.Prune(time.Duration(task.MaxAgeHours) * time.Hour)
		if err != nil {
			return fmt.Errorf("prune covers: %w", err)
		}

		log.Printf("[TASK] Pruned %d cached covers", removed)
		return nil
	}
}

// NewPruneCoversQueue creates a backlite queue for cover pruning tasks.
func NewPruneCoversQueue(pruner CoverPruner) backlite.Queue {
	return backlite.NewQueue(PruneCoversProcessor(pruner))
}

// Maintenance groups the collaborators behind the maintenance queues.
type Maintenance struct {
	Tokens TokenPurger
	Audit  AuditEventCleaner
	Covers CoverPruner
}

// Queues returns one queue per maintenance kind, ready for Client.Register.
func (m Maintenance) Queues() []backlite.Queue {
	return []backlite.Queue{
		NewPurgeBookTokensQueue(m.Tokens),
		NewCleanupAuditQueue(m.Audit),
		NewPruneCoversQueue(m.Covers),
	}
}
