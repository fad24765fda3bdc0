package model

import "time"

// LeaveRequest is a temporary leave from the dormitory. The supervisor it
// was routed to is also the rotation history used by round-robin routing.
type LeaveRequest struct {
	ID                    int64         `gorm:"primaryKey" json:"id"`
	UserID                int64         `gorm:"index:idx_leave_user_status;not null" json:"user_id"`
	SupervisorID          *int64        `gorm:"index:idx_leave_supervisor_approval" json:"supervisor_id,omitempty"`
	LeaveType             LeaveType     `gorm:"size:32;not null" json:"leave_type"`
	StartDate             time.Time     `gorm:"not null;index:idx_leave_dates" json:"start_date"`
	EndDate               time.Time     `gorm:"not null;index:idx_leave_dates" json:"end_date"`
	ReturnDate            time.Time     `gorm:"not null" json:"return_date"`
	Destination           string        `gorm:"size:255" json:"destination"`
	EmergencyContactName  string        `gorm:"size:255" json:"emergency_contact_name"`
	EmergencyContactPhone string        `gorm:"size:32" json:"emergency_contact_phone"`
	Reason                string        `gorm:"type:text" json:"reason"`
	SupervisorApproval    LeaveApproval `gorm:"size:16;not null;default:pending;index:idx_leave_supervisor_approval" json:"supervisor_approval"`
	Status                LeaveStatus   `gorm:"size:16;not null;default:draft;index:idx_leave_user_status" json:"status"`
	SupervisorNotes       string        `gorm:"type:text" json:"supervisor_notes,omitempty"`
	ApprovedAt            *time.Time    `json:"approved_at,omitempty"`
	ReturnedAt            *time.Time    `json:"returned_at,omitempty"`
	CreatedAt             time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`

	// Associations
	User       User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Supervisor *User `gorm:"foreignKey:SupervisorID;constraint:OnDelete:SET NULL" json:"supervisor,omitempty"`
}
