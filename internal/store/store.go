package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"dorm-allocation-backend/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrRoomUnavailable is returned when a guarded seat reservation matched no row.
	ErrRoomUnavailable = errors.New("room is no longer available")
	// ErrNoOccupant is returned when releasing a seat in an empty room.
	ErrNoOccupant = errors.New("room has no occupant to release")
	// ErrDuplicateActiveAssignment is returned when the user already holds a current assignment.
	ErrDuplicateActiveAssignment = errors.New("already has active assignment")
	// ErrInvalidTransition is returned when a status change is not in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict is returned when a row's status changed under us.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	// Transaction runs fn against a store bound to a transaction. Calling it
	// on a store that is already transactional opens a savepoint instead.
	Transaction(ctx context.Context, fn func(Store) error) error

	// Capacity
	EligibleBlocks(ctx context.Context, gender model.Gender) ([]model.Block, error)
	GetBlock(ctx context.Context, id int64) (*model.Block, error)
	GetBlockByName(ctx context.Context, name string) (*model.Block, error)
	FindAvailableRoom(ctx context.Context, q RoomQuery) (*model.Room, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ReserveSeat(ctx context.Context, roomID int64) error
	ReleaseSeat(ctx context.Context, roomID int64) error
	UpsertInventory(ctx context.Context, blocks []BlockItem, rooms []RoomItem) (*InventoryResult, error)

	// Applications
	ApprovedApplications(ctx context.Context, f CandidateFilter) ([]model.Application, error)
	GetApplication(ctx context.Context, id int64) (*model.Application, error)
	SetApplicationStatus(ctx context.Context, app *model.Application, next model.ApplicationStatus) error
	SetPriorityScore(ctx context.Context, app *model.Application, score int) error

	// Assignments
	CurrentAssignment(ctx context.Context, userID int64) (*model.Assignment, error)
	CreateAssignment(ctx context.Context, a *model.Assignment) error
	SetAssignmentStatus(ctx context.Context, a *model.Assignment, next model.AssignmentStatus) error

	// Change requests
	ApprovedChangeRequests(ctx context.Context, block string) ([]model.ChangeRequest, error)
	SetChangeRequestStatus(ctx context.Context, cr *model.ChangeRequest, next model.ChangeRequestStatus, at time.Time) error

	// Users and leave
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ActiveSupervisors(ctx context.Context, block string) ([]model.User, error)
	LastLeaveAssignedAt(ctx context.Context, supervisorID int64) (time.Time, bool, error)
	CreateLeaveRequest(ctx context.Context, lr *model.LeaveRequest) error
	HasOverlappingLeave(ctx context.Context, userID int64, start, end time.Time) (bool, error)
	SupervisorWorkload(ctx context.Context, supervisorID int64, now time.Time) (*Workload, error)
	MarkOverdueLeaves(ctx context.Context, now time.Time) (int64, error)

	// Notifications
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)

	// Reporting
	AllocationStats(ctx context.Context) (*Stats, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// isDuplicate reports whether err is a unique-constraint violation. The
// string checks cover drivers that do not translate errors.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %v: %w", what, id, err)
}
