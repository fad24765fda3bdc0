// Package rotation routes leave requests to the supervisor on duty.
//
// Each block has up to three supervisors, ordered by ID. Monday and Tuesday
// belong to the first, Wednesday and Thursday to the second, and Friday
// through Sunday to the third. Smaller rosters wrap around by modulo.
package rotation

import (
	"context"
	"fmt"
	"log"
	"time"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

// Notifier receives the routed-leave message for the chosen supervisor.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) error
}

// Service answers rotation queries against the store.
type Service struct {
	store    store.Store
	notifier Notifier
	cfg      config.RotationConfig
	now      func() time.Time
}

// NewService creates a rotation service. notifier may be nil.
func NewService(s store.Store, notifier Notifier, cfg config.RotationConfig) *Service {
	return &Service{
		store:    s,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// dutyIndex maps a weekday to a roster slot.
func dutyIndex(day time.Weekday) int {
	switch day {
	case time.Monday, time.Tuesday:
		return 0
	case time.Wednesday, time.Thursday:
		return 1
	}
	return 2
}

func (s *Service) today() time.Time {
	return s.now().In(s.cfg.Location())
}

// roster returns the block's active supervisors that take part in the rotation.
func (s *Service) roster(ctx context.Context, block string) ([]model.User, error) {
	supervisors, err := s.store.ActiveSupervisors(ctx, block)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxPerBlock > 0 && len(supervisors) > s.cfg.MaxPerBlock {
		supervisors = supervisors[:s.cfg.MaxPerBlock]
	}
	return supervisors, nil
}

func onDuty(roster []model.User, day time.Weekday) *model.User {
	if len(roster) == 0 {
		return nil
	}
	return &roster[dutyIndex(day)%len(roster)]
}

// AssignSupervisor picks the supervisor for a leave request by the
// applicant. Applicants without a room, or whose block has no supervisors,
// fall back to round-robin. It returns nil when no supervisor is active.
func (s *Service) AssignSupervisor(ctx context.Context, applicantID int64, leaveType model.LeaveType) (*model.User, error) {
	current, err := s.store.CurrentAssignment(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Room.Block.Name != "" {
		block := current.Room.Block.Name
		roster, err := s.roster(ctx, block)
		if err != nil {
			return nil, err
		}
		if supervisor := onDuty(roster, s.today().Weekday()); supervisor != nil {
			log.Printf("Routing %s leave for user %d to supervisor %d of block %s", leaveType, applicantID, supervisor.ID, block)
			return supervisor, nil
		}
		log.Printf("Block %s has no active supervisors; using round-robin", block)
	}
	return s.roundRobin(ctx)
}

// roundRobin returns the active supervisor who was routed a leave request
// least recently. Supervisors never routed one come first; ties go to the
// lowest ID.
func (s *Service) roundRobin(ctx context.Context) (*model.User, error) {
	supervisors, err := s.store.ActiveSupervisors(ctx, "")
	if err != nil {
		return nil, err
	}

	var (
		best     *model.User
		bestLast time.Time
		bestUsed bool
	)
	for i := range supervisors {
		last, used, err := s.store.LastLeaveAssignedAt(ctx, supervisors[i].ID)
		if err != nil {
			return nil, err
		}
		switch {
		case best == nil:
		case bestUsed && !used:
		case used && bestUsed && last.Before(bestLast):
		default:
			continue
		}
		best, bestLast, bestUsed = &supervisors[i], last, used
	}
	return best, nil
}

// TodaysSupervisor returns the block's supervisor on duty today, or nil.
func (s *Service) TodaysSupervisor(ctx context.Context, block string) (*model.User, error) {
	roster, err := s.roster(ctx, block)
	if err != nil {
		return nil, err
	}
	return onDuty(roster, s.today().Weekday()), nil
}

// ScheduleEntry is one day of a block's duty table.
type ScheduleEntry struct {
	Day            string `json:"day"`
	SupervisorID   int64  `json:"supervisor_id,omitempty"`
	SupervisorName string `json:"supervisor_name,omitempty"`
	Today          bool   `json:"is_today"`
}

var week = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// BlockSchedule returns the duty table for Monday through Sunday.
func (s *Service) BlockSchedule(ctx context.Context, block string) ([]ScheduleEntry, error) {
	roster, err := s.roster(ctx, block)
	if err != nil {
		return nil, err
	}
	today := s.today().Weekday()

	schedule := make([]ScheduleEntry, 0, len(week))
	for _, day := range week {
		entry := ScheduleEntry{Day: day.String(), Today: day == today}
		if supervisor := onDuty(roster, day); supervisor != nil {
			entry.SupervisorID = supervisor.ID
			entry.SupervisorName = supervisor.Name
		}
		schedule = append(schedule, entry)
	}
	return schedule, nil
}

// SupervisorLoad is one supervisor's share of a block's leave requests.
type SupervisorLoad struct {
	SupervisorID int64  `json:"supervisor_id"`
	Name         string `json:"name"`
	store.Workload
	Total int64 `json:"total_workload"`
}

// BlockWorkload counts the leave requests of every active supervisor of the
// block. Total is pending plus currently active leave.
func (s *Service) BlockWorkload(ctx context.Context, block string) ([]SupervisorLoad, error) {
	supervisors, err := s.store.ActiveSupervisors(ctx, block)
	if err != nil {
		return nil, err
	}
	now := s.now()

	loads := make([]SupervisorLoad, 0, len(supervisors))
	for _, sup := range supervisors {
		w, err := s.store.SupervisorWorkload(ctx, sup.ID, now)
		if err != nil {
			return nil, fmt.Errorf("workload of supervisor %d: %w", sup.ID, err)
		}
		loads = append(loads, SupervisorLoad{
			SupervisorID: sup.ID,
			Name:         sup.Name,
			Workload:     *w,
			Total:        w.Pending + w.Active,
		})
	}
	return loads, nil
}

// MarkOverdue flags approved leave past its return date.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.MarkOverdueLeaves(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("Marked %d leave requests overdue", n)
	}
	return n, nil
}
