package model

import "time"

// Assignment binds a user to a room for a semester. A user holds at most one
// assignment in a current status; storage enforces this with a unique index.
type Assignment struct {
	ID            int64            `gorm:"primaryKey" json:"id"`
	UserID        int64            `gorm:"index;not null" json:"user_id"`
	RoomID        int64            `gorm:"index;not null" json:"room_id"`
	ApplicationID *int64           `gorm:"index" json:"application_id,omitempty"`
	AssignedBy    int64            `gorm:"not null" json:"assigned_by"`
	AssignedAt    time.Time        `gorm:"not null" json:"assigned_at"`
	Status        AssignmentStatus `gorm:"size:16;not null;index" json:"status"`
	Semester      string           `gorm:"size:32" json:"semester"`
	AcademicYear  string           `gorm:"size:16" json:"academic_year"`
	Notes         string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Associations
	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Room Room `gorm:"constraint:OnDelete:RESTRICT" json:"room,omitempty"`
}

func (Assignment) TableName() string {
	return "room_assignments"
}
