// Package allocation places residents into rooms in priority-ordered batches.
//
// A batch runs in one transaction. Each candidate runs in its own savepoint:
// a rejected candidate is rolled back and recorded as a Failure while the
// batch continues, and only an infrastructure error rolls back the batch.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

const (
	kindAllocate   = "allocate"
	kindReallocate = "reallocate"
)

// Notifier receives one message per committed placement, after commit.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) error
}

// Processor runs allocation and reallocation batches.
type Processor struct {
	store    store.Store
	matcher  *Matcher
	notifier Notifier
	metrics  *Metrics
	cfg      config.AllocationConfig
	now      func() time.Time
}

// NewProcessor creates a processor. notifier and metrics may be nil.
func NewProcessor(s store.Store, notifier Notifier, metrics *Metrics, cfg config.AllocationConfig) *Processor {
	return &Processor{
		store:    s,
		matcher:  &Matcher{},
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// candidate is one unit of work in a batch.
type candidate struct {
	applicationID   int64
	changeRequestID int64
	userID          int64
	userName        string
	place           func(ctx context.Context, sp store.Store) (*Allocation, *notification.Message, error)
}

func (c candidate) failure(err error) Failure {
	return Failure{
		ApplicationID:   c.applicationID,
		ChangeRequestID: c.changeRequestID,
		UserID:          c.userID,
		UserName:        c.userName,
		Reason:          err.Error(),
	}
}

// AutoAllocate places every approved application matching f, highest
// priority first.
func (p *Processor) AutoAllocate(ctx context.Context, f Filters) (*BatchResult, error) {
	actor := p.actor(f)
	return p.run(ctx, kindAllocate, func(tx store.Store) ([]candidate, error) {
		apps, err := tx.ApprovedApplications(ctx, store.CandidateFilter{Block: f.Block, Gender: f.Gender})
		if err != nil {
			return nil, err
		}
		log.Printf("Auto-allocation: %d approved applications (block=%q gender=%q)", len(apps), f.Block, f.Gender)

		candidates := make([]candidate, 0, len(apps))
		for i := range apps {
			app := &apps[i]
			candidates = append(candidates, candidate{
				applicationID: app.ID,
				userID:        app.UserID,
				userName:      app.User.Name,
				place: func(ctx context.Context, sp store.Store) (*Allocation, *notification.Message, error) {
					return p.allocate(ctx, sp, app, actor)
				},
			})
		}
		return candidates, nil
	})
}

func (p *Processor) allocate(ctx context.Context, sp store.Store, app *model.Application, actor int64) (*Allocation, *notification.Message, error) {
	current, err := sp.CurrentAssignment(ctx, app.UserID)
	if err != nil {
		return nil, nil, err
	}
	if current != nil {
		return nil, nil, store.ErrDuplicateActiveAssignment
	}

	gender := app.User.GenderValue()
	if gender == "" {
		return nil, nil, errGenderNotSpecified
	}

	criteria := Criteria{PreferredBlock: app.PreferredBlock, Gender: gender}
	if app.RoomTypePreference != nil {
		criteria.RoomType = *app.RoomTypePreference
	}
	room, err := p.matcher.FindRoom(ctx, sp, criteria)
	if err != nil {
		return nil, nil, err
	}
	if room == nil {
		return nil, nil, noRoomError(app.PreferredBlock, gender)
	}

	assignment, err := p.seat(ctx, sp, app.UserID, &app.ID, room, actor)
	if err != nil {
		return nil, nil, err
	}
	if err := sp.SetApplicationStatus(ctx, app, model.ApplicationCompleted); err != nil {
		return nil, nil, err
	}

	alloc := &Allocation{
		ApplicationID: app.ID,
		AssignmentID:  assignment.ID,
		UserID:        app.UserID,
		UserName:      app.User.Name,
		RoomID:        room.ID,
		RoomNumber:    room.RoomNumber,
		Block:         room.Block.Name,
		RoomType:      room.RoomType,
	}
	msg := allocatedMessage(alloc)
	return alloc, &msg, nil
}

// seat takes a seat in room and records the assignment.
func (p *Processor) seat(ctx context.Context, sp store.Store, userID int64, applicationID *int64, room *model.Room, actor int64) (*model.Assignment, error) {
	if err := sp.ReserveSeat(ctx, room.ID); err != nil {
		if errors.Is(err, store.ErrRoomUnavailable) {
			return nil, fmt.Errorf("room %s is no longer available", room.RoomNumber)
		}
		return nil, err
	}

	assignment := &model.Assignment{
		UserID:        userID,
		RoomID:        room.ID,
		ApplicationID: applicationID,
		AssignedBy:    actor,
		AssignedAt:    p.now(),
		Status:        model.AssignmentAssigned,
		Semester:      p.cfg.Semester,
		AcademicYear:  p.cfg.AcademicYear,
	}
	if err := sp.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// run executes one batch: load candidates and place each inside a savepoint
// of a single transaction, then notify after commit.
func (p *Processor) run(ctx context.Context, kind string, load func(tx store.Store) ([]candidate, error)) (*BatchResult, error) {
	started := p.now()
	result := &BatchResult{
		StartedAt:   started,
		Allocations: []Allocation{},
		Failures:    []Failure{},
	}
	var outbox []notification.Message

	err := p.store.Transaction(ctx, func(tx store.Store) error {
		candidates, err := load(tx)
		if err != nil {
			return fmt.Errorf("failed to load candidates: %w", err)
		}
		result.TotalCandidates = len(candidates)

		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return err
			}

			var alloc *Allocation
			var msg *notification.Message
			err := savepoint(ctx, tx, func(sp store.Store) error {
				var err error
				alloc, msg, err = c.place(ctx, sp)
				return err
			})
			if err != nil {
				if isFatal(err) {
					return fmt.Errorf("user %d: %w", c.userID, err)
				}
				log.Printf("%s: user %d not placed: %v", kind, c.userID, err)
				result.Failures = append(result.Failures, c.failure(err))
				continue
			}
			result.Allocations = append(result.Allocations, *alloc)
			outbox = append(outbox, *msg)
		}
		return nil
	})
	if err != nil {
		p.metrics.observeRun(kind, nil, p.now().Sub(started))
		log.Printf("%s batch rolled back: %v", kind, err)
		return nil, fmt.Errorf("%s: %w: %w", kind, ErrBatchAborted, err)
	}

	result.AllocatedCount = len(result.Allocations)
	result.FailedCount = len(result.Failures)
	result.NotificationsSent = p.dispatch(ctx, outbox)
	result.FinishedAt = p.now()
	p.metrics.observeRun(kind, result, result.FinishedAt.Sub(started))
	log.Printf("%s batch committed: %d placed, %d failed", kind, result.AllocatedCount, result.FailedCount)
	return result, nil
}

// savepoint runs fn in a nested transaction. A savepoint that cannot be
// created never calls fn, which is reported as errSavepoint.
func savepoint(ctx context.Context, tx store.Store, fn func(store.Store) error) error {
	entered := false
	err := tx.Transaction(ctx, func(sp store.Store) error {
		entered = true
		return fn(sp)
	})
	if err != nil && !entered {
		return fmt.Errorf("%w: %w", errSavepoint, err)
	}
	return err
}

// dispatch hands committed messages to the notifier and returns how many it accepted.
func (p *Processor) dispatch(ctx context.Context, outbox []notification.Message) int {
	if p.notifier == nil {
		return 0
	}
	sent := 0
	for _, msg := range outbox {
		if err := p.notifier.Notify(ctx, msg); err != nil {
			log.Printf("Error queueing %s notification for user %d: %v", msg.Type, msg.UserID, err)
			continue
		}
		sent++
	}
	return sent
}

// Stats returns the allocation summary and refreshes the occupancy gauge.
func (p *Processor) Stats(ctx context.Context) (*store.Stats, error) {
	stats, err := p.store.AllocationStats(ctx)
	if err != nil {
		return nil, err
	}
	p.metrics.setOccupancy(stats.OccupancyRate)
	return stats, nil
}

func (p *Processor) actor(f Filters) int64 {
	if f.ActorID > 0 {
		return f.ActorID
	}
	return p.cfg.SystemActorID
}

func noRoomError(block string, gender model.Gender) error {
	if block == "" {
		return fmt.Errorf("no available rooms in any block for %s students", gender)
	}
	return fmt.Errorf("no available rooms in block %s for %s students", block, gender)
}
