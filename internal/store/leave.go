package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
)

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// ActiveSupervisors returns the active supervisors of a block by ascending
// ID. An empty block returns every active supervisor.
func (s *gormStore) ActiveSupervisors(ctx context.Context, block string) ([]model.User, error) {
	query := s.db.WithContext(ctx).
		Where("role = ? AND status = ?", model.RoleSupervisor, model.UserActive)
	if block != "" {
		query = query.Where("assigned_block = ?", block)
	}

	var supervisors []model.User
	if err := query.Order("id ASC").Find(&supervisors).Error; err != nil {
		return nil, fmt.Errorf("failed to load supervisors: %w", err)
	}
	return supervisors, nil
}

// LastLeaveAssignedAt returns when the supervisor was last routed a leave
// request. The bool is false when they never were.
func (s *gormStore) LastLeaveAssignedAt(ctx context.Context, supervisorID int64) (time.Time, bool, error) {
	var latest []model.LeaveRequest
	if err := s.db.WithContext(ctx).
		Select("id", "created_at").
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&latest).Error; err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load leave history for supervisor %d: %w", supervisorID, err)
	}
	if len(latest) == 0 {
		return time.Time{}, false, nil
	}
	return latest[0].CreatedAt, true, nil
}

func (s *gormStore) CreateLeaveRequest(ctx context.Context, lr *model.LeaveRequest) error {
	if !lr.LeaveType.Valid() {
		return fmt.Errorf("unsupported leave type %q", lr.LeaveType)
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(lr).Error; err != nil {
		return fmt.Errorf("failed to create leave request for user %d: %w", lr.UserID, err)
	}
	return nil
}

// HasOverlappingLeave reports whether the user has a submitted or approved
// leave whose dates intersect [start, end].
func (s *gormStore) HasOverlappingLeave(ctx context.Context, userID int64, start, end time.Time) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.LeaveRequest{}).
		Where("user_id = ? AND status IN ?", userID, []model.LeaveStatus{model.LeaveSubmitted, model.LeaveApproved}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check overlapping leave for user %d: %w", userID, err)
	}
	return count > 0, nil
}

func (s *gormStore) SupervisorWorkload(ctx context.Context, supervisorID int64, now time.Time) (*Workload, error) {
	var w Workload
	base := s.db.WithContext(ctx).
		Model(&model.LeaveRequest{}).
		Where("supervisor_id = ?", supervisorID).
		Session(&gorm.Session{})

	if err := base.Where("supervisor_approval = ?", model.ApprovalPending).Count(&w.Pending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending leave for supervisor %d: %w", supervisorID, err)
	}
	if err := base.Where("supervisor_approval = ?", model.ApprovalApproved).Count(&w.Approved).Error; err != nil {
		return nil, fmt.Errorf("failed to count approved leave for supervisor %d: %w", supervisorID, err)
	}
	if err := base.
		Where("supervisor_approval = ?", model.ApprovalApproved).
		Where("start_date <= ? AND return_date >= ? AND returned_at IS NULL", now, now).
		Count(&w.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to count active leave for supervisor %d: %w", supervisorID, err)
	}
	return &w, nil
}

// MarkOverdueLeaves flags approved leave whose return date has passed without
// a recorded return.
func (s *gormStore) MarkOverdueLeaves(ctx context.Context, now time.Time) (int64, error) {
	if !model.LeaveApproved.CanTransitionTo(model.LeaveOverdue) {
		return 0, ErrInvalidTransition
	}
	res := s.db.WithContext(ctx).
		Model(&model.LeaveRequest{}).
		Where("status = ? AND return_date < ? AND returned_at IS NULL", model.LeaveApproved, now).
		Update("status", model.LeaveOverdue)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark overdue leave: %w", res.Error)
	}
	return res.RowsAffected, nil
}
