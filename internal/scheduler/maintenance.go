// Package scheduler enqueues maintenance tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/kobosync/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer hands a task kind to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, d tasks.Defaults) (string, error)
}

// Job is one task kind and the standard five-field cron schedule it runs on.
// An empty schedule disables the job.
type Job struct {
	Kind     string
	Schedule string
}

// ValidateSchedule reports whether schedule is a valid five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// MaintenanceScheduler enqueues maintenance tasks. The work itself runs on
// the task queue so retries and timeouts stay in one place.
type MaintenanceScheduler struct {
	queue    Enqueuer
	defaults tasks.Defaults
	jobs     []Job

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewMaintenanceScheduler(queue Enqueuer, defaults tasks.Defaults, jobs ...Job) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:    queue,
		defaults: defaults,
		jobs:     jobs,
	}
}

// Start registers every enabled job and starts the cron loop. The scheduler
// stops when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.cron = cron.New(cron.WithParser(parser))
	s.entries = make(map[string]cron.EntryID)
	for _, job := range s.jobs {
		if job.Schedule == "" {
			log.Printf("Maintenance scheduler: %s disabled", job.Kind)
			continue
		}
		if err := ValidateSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Kind, err)
		}

		kind := job.Kind
		entryID, err := s.cron.AddFunc(job.Schedule, func() { s.enqueue(kind) })
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", kind, err)
		}
		s.entries[kind] = entryID
	}

	if len(s.entries) == 0 {
		log.Printf("Maintenance scheduler: no jobs enabled")
		return nil
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)
	s.cron.Start()
	s.isRunning = true

	for _, entry := range s.cron.Entries() {
		for kind, id := range s.entries {
			if entry.ID == id {
				log.Printf("Maintenance scheduler: %s next run %v", kind, entry.Next)
			}
		}
	}

	go func() {
		<-s.ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for in-flight enqueues.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	c, cancel := s.cron, s.cancelFunc
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow enqueues a job immediately, outside its schedule.
func (s *MaintenanceScheduler) RunNow(ctx context.Context, kind string) (string, error) {
	return s.queue.Enqueue(ctx, kind, s.defaults)
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTimes returns the next activation of every scheduled job.
func (s *MaintenanceScheduler) NextRunTimes() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := make(map[string]time.Time, len(s.entries))
	if !s.isRunning {
		return next
	}
	for kind, id := range s.entries {
		next[kind] = s.cron.Entry(id).Next
	}
	return next
}

func (s *MaintenanceScheduler) enqueue(kind string) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	id, err := s.queue.Enqueue(ctx, kind, s.defaults)
	if err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue %s: %v", kind, err)
		return
	}
	log.Printf("Maintenance scheduler: enqueued %s (%s)", kind, id)
}
