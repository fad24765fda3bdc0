package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
)

// ApprovedApplications loads the allocation candidates with their applicants,
// highest priority first. Older applications win ties, then lower IDs.
func (s *gormStore) ApprovedApplications(ctx context.Context, f CandidateFilter) ([]model.Application, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("applications.*").
		Joins("JOIN users ON users.id = applications.user_id").
		Where("applications.status = ?", model.ApplicationApproved)
	if f.Block != "" {
		query = query.Where("applications.preferred_block = ?", f.Block)
	}
	if f.Gender != "" {
		query = query.Where("users.gender = ?", f.Gender)
	}

	var apps []model.Application
	if err := query.
		Order("applications.priority_score DESC").
		Order("applications.application_date ASC").
		Order("applications.id ASC").
		Preload("User").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to load approved applications: %w", err)
	}
	return apps, nil
}

func (s *gormStore) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	var app model.Application
	if err := s.db.WithContext(ctx).Preload("User").First(&app, id).Error; err != nil {
		return nil, notFound(err, "application", id)
	}
	return &app, nil
}

// SetApplicationStatus moves app to next if the transition table allows it
// and nobody changed the row since it was read.
func (s *gormStore) SetApplicationStatus(ctx context.Context, app *model.Application, next model.ApplicationStatus) error {
	if !app.Status.CanTransitionTo(next) {
		return fmt.Errorf("application %d %s -> %s: %w", app.ID, app.Status, next, ErrInvalidTransition)
	}
	res := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ? AND status = ?", app.ID, app.Status).
		Update("status", next)
	if res.Error != nil {
		return fmt.Errorf("failed to update application %d: %w", app.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("application %d: %w", app.ID, ErrStatusConflict)
	}
	app.Status = next
	return nil
}

func (s *gormStore) SetPriorityScore(ctx context.Context, app *model.Application, score int) error {
	if err := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ?", app.ID).
		Update("priority_score", score).Error; err != nil {
		return fmt.Errorf("failed to store priority score for application %d: %w", app.ID, err)
	}
	app.PriorityScore = score
	return nil
}

// CurrentAssignment returns the user's assigned or active assignment with its
// room and block, or nil when there is none.
func (s *gormStore) CurrentAssignment(ctx context.Context, userID int64) (*model.Assignment, error) {
	var assignments []model.Assignment
	if err := s.db.WithContext(ctx).
		Preload("Room.Block").
		Where("user_id = ? AND status IN ?", userID, model.CurrentAssignmentStatuses).
		Order("id DESC").
		Limit(1).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load current assignment for user %d: %w", userID, err)
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	return &assignments[0], nil
}

// CreateAssignment inserts a. A unique-index violation surfaces as
// ErrDuplicateActiveAssignment.
func (s *gormStore) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	if !a.Status.Valid() {
		return fmt.Errorf("assignment status %q: %w", a.Status, ErrInvalidTransition)
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateActiveAssignment
		}
		return fmt.Errorf("failed to create assignment for user %d: %w", a.UserID, err)
	}
	return nil
}

func (s *gormStore) SetAssignmentStatus(ctx context.Context, a *model.Assignment, next model.AssignmentStatus) error {
	if !a.Status.CanTransitionTo(next) {
		return fmt.Errorf("assignment %d %s -> %s: %w", a.ID, a.Status, next, ErrInvalidTransition)
	}
	res := s.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("id = ? AND status = ?", a.ID, a.Status).
		Update("status", next)
	if res.Error != nil {
		return fmt.Errorf("failed to update assignment %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assignment %d: %w", a.ID, ErrStatusConflict)
	}
	a.Status = next
	return nil
}

// ApprovedChangeRequests loads approved change requests oldest first. A
// non-empty block matches either the requested room's block or the
// requested block name.
func (s *gormStore) ApprovedChangeRequests(ctx context.Context, block string) ([]model.ChangeRequest, error) {
	query := s.db.WithContext(ctx).
		Where("room_change_requests.status = ?", model.ChangeRequestApproved)
	if block != "" {
		roomsInBlock := s.db.Model(&model.Room{}).
			Select("rooms.id").
			Joins("JOIN blocks ON blocks.id = rooms.block_id").
			Where("blocks.name = ?", block)
		query = query.Where(
			"room_change_requests.requested_block = ? OR room_change_requests.requested_room_id IN (?)",
			block, roomsInBlock)
	}

	var requests []model.ChangeRequest
	if err := query.
		Order("room_change_requests.requested_at ASC").
		Order("room_change_requests.id ASC").
		Preload("User").
		Preload("CurrentRoom").
		Preload("RequestedRoom.Block").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to load approved change requests: %w", err)
	}
	return requests, nil
}

func (s *gormStore) SetChangeRequestStatus(ctx context.Context, cr *model.ChangeRequest, next model.ChangeRequestStatus, at time.Time) error {
	if !cr.Status.CanTransitionTo(next) {
		return fmt.Errorf("change request %d %s -> %s: %w", cr.ID, cr.Status, next, ErrInvalidTransition)
	}
	res := s.db.WithContext(ctx).
		Model(&model.ChangeRequest{}).
		Where("id = ? AND status = ?", cr.ID, cr.Status).
		Updates(map[string]any{"status": next, "processed_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to update change request %d: %w", cr.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("change request %d: %w", cr.ID, ErrStatusConflict)
	}
	cr.Status = next
	cr.ProcessedAt = &at
	return nil
}
