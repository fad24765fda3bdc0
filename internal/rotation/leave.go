package rotation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

var (
	ErrInvalidLeaveType  = errors.New("invalid leave type")
	ErrInvalidLeaveDates = errors.New("invalid leave dates")
	ErrLeaveTooLong      = errors.New("leave exceeds the maximum duration")
	ErrLeaveOverlap      = errors.New("leave overlaps an existing request")
)

// LeaveInput is a resident's leave application.
type LeaveInput struct {
	UserID                int64           `json:"-"`
	LeaveType             model.LeaveType `json:"leave_type" binding:"required"`
	StartDate             time.Time       `json:"start_date" binding:"required"`
	EndDate               time.Time       `json:"end_date" binding:"required"`
	ReturnDate            time.Time       `json:"return_date"` // defaults to EndDate
	Destination           string          `json:"destination"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	Reason                string          `json:"reason"`
}

func (s *Service) day(t time.Time) time.Time {
	t = t.In(s.cfg.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// validate normalises the dates to calendar days and checks them.
func (s *Service) validate(in *LeaveInput) error {
	if !in.LeaveType.Valid() {
		return fmt.Errorf("%q: %w", in.LeaveType, ErrInvalidLeaveType)
	}
	in.StartDate = s.day(in.StartDate)
	in.EndDate = s.day(in.EndDate)
	if in.ReturnDate.IsZero() {
		in.ReturnDate = in.EndDate
	}
	in.ReturnDate = s.day(in.ReturnDate)

	switch {
	case in.StartDate.Before(s.day(s.now())):
		return fmt.Errorf("start date is in the past: %w", ErrInvalidLeaveDates)
	case in.EndDate.Before(in.StartDate):
		return fmt.Errorf("end date is before start date: %w", ErrInvalidLeaveDates)
	case in.ReturnDate.Before(in.EndDate):
		return fmt.Errorf("return date is before end date: %w", ErrInvalidLeaveDates)
	}

	days := int(in.EndDate.Sub(in.StartDate).Hours()/24) + 1
	if limit := s.cfg.MaxLeaveDays; limit > 0 && days > limit {
		return fmt.Errorf("%d days requested, at most %d allowed: %w", days, limit, ErrLeaveTooLong)
	}
	return nil
}

// SubmitLeave records a submitted leave request routed to the supervisor on
// duty. The supervisor is notified after the request is stored.
func (s *Service) SubmitLeave(ctx context.Context, in LeaveInput) (*model.LeaveRequest, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	var (
		lr         *model.LeaveRequest
		supervisor *model.User
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		overlap, err := tx.HasOverlappingLeave(ctx, in.UserID, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		if overlap {
			return ErrLeaveOverlap
		}

		routed := &Service{store: tx, cfg: s.cfg, now: s.now}
		supervisor, err = routed.AssignSupervisor(ctx, in.UserID, in.LeaveType)
		if err != nil {
			return err
		}

		lr = &model.LeaveRequest{
			UserID:                in.UserID,
			LeaveType:             in.LeaveType,
			StartDate:             in.StartDate,
			EndDate:               in.EndDate,
			ReturnDate:            in.ReturnDate,
			Destination:           in.Destination,
			EmergencyContactName:  in.EmergencyContactName,
			EmergencyContactPhone: in.EmergencyContactPhone,
			Reason:                in.Reason,
			SupervisorApproval:    model.ApprovalPending,
			Status:                model.LeaveSubmitted,
			CreatedAt:             s.now(),
		}
		if supervisor != nil {
			lr.SupervisorID = &supervisor.ID
		} else {
			log.Printf("Warning: no active supervisor for leave of user %d", in.UserID)
		}
		return tx.CreateLeaveRequest(ctx, lr)
	})
	if err != nil {
		return nil, err
	}

	if supervisor != nil {
		lr.Supervisor = supervisor
		s.notifySupervisor(ctx, lr)
	}
	return lr, nil
}

func (s *Service) notifySupervisor(ctx context.Context, lr *model.LeaveRequest) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		UserID: lr.Supervisor.ID,
		Type:   notification.TypeLeaveRouted,
		Title:  "New Leave Request",
		Body: fmt.Sprintf("A %s leave request from %s to %s is waiting for your approval.",
			lr.LeaveType, lr.StartDate.Format(time.DateOnly), lr.EndDate.Format(time.DateOnly)),
		Data: map[string]any{
			"leave_request_id": lr.ID,
			"user_id":          lr.UserID,
		},
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Printf("Error queueing leave notification for supervisor %d: %v", lr.Supervisor.ID, err)
	}
}
