// Package scheduler runs the allocation passes on a fixed interval.
package scheduler

import (
	"context"
	"log"
	"time"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/allocation"
)

// Allocator is the batch processor driven by the scheduler.
type Allocator interface {
	AutoAllocate(ctx context.Context, f allocation.Filters) (*allocation.BatchResult, error)
	Reallocate(ctx context.Context, f allocation.Filters) (*allocation.BatchResult, error)
}

// LeaveTracker flags overdue leave.
type LeaveTracker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// Service periodically allocates approved applications, processes approved
// change requests and marks overdue leave.
type Service struct {
	cfg       config.SchedulerConfig
	allocator Allocator
	leaves    LeaveTracker
	afterRun  func()
}

// NewService creates a scheduler. afterRun, if set, is called after each
// cycle that changed any assignment.
func NewService(cfg config.SchedulerConfig, allocator Allocator, leaves LeaveTracker, afterRun func()) *Service {
	return &Service{
		cfg:       cfg,
		allocator: allocator,
		leaves:    leaves,
		afterRun:  afterRun,
	}
}

// Run starts the cycle loop and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Scheduler is disabled. Not starting.")
		return
	}
	log.Printf("Starting scheduler, interval %s", s.cfg.Interval)

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler shutting down.")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunOnce performs one cycle. A failing pass is logged and the next pass
// still runs.
func (s *Service) RunOnce(ctx context.Context) {
	log.Println("Executing allocation cycle...")
	changed := 0

	if result, err := s.allocator.AutoAllocate(ctx, allocation.Filters{}); err != nil {
		log.Printf("Error running auto-allocation: %v", err)
	} else {
		changed += result.AllocatedCount
	}

	if result, err := s.allocator.Reallocate(ctx, allocation.Filters{}); err != nil {
		log.Printf("Error running reallocation: %v", err)
	} else {
		changed += result.AllocatedCount
	}

	if s.leaves != nil {
		if _, err := s.leaves.MarkOverdue(ctx); err != nil {
			log.Printf("Error marking overdue leave: %v", err)
		}
	}

	if changed > 0 && s.afterRun != nil {
		s.afterRun()
	}
	log.Printf("Allocation cycle finished: %d placements.", changed)
}
