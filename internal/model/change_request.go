package model

import "time"

// ChangeRequest asks to move a resident to another room or block.
type ChangeRequest struct {
	ID              int64               `gorm:"primaryKey" json:"id"`
	UserID          int64               `gorm:"index;not null" json:"user_id"`
	CurrentRoomID   *int64              `json:"current_room_id,omitempty"`
	RequestedRoomID *int64              `json:"requested_room_id,omitempty"`
	RequestedBlock  *string             `gorm:"size:128" json:"requested_block,omitempty"`
	RequestType     string              `gorm:"size:32" json:"request_type"`
	Reason          string              `gorm:"type:text" json:"reason,omitempty"`
	Priority        string              `gorm:"size:16" json:"priority"`
	Status          ChangeRequestStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	RequestedAt     time.Time           `gorm:"not null;index" json:"requested_at"`
	ProcessedAt     *time.Time          `json:"processed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	// Associations
	User          User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CurrentRoom   *Room `gorm:"foreignKey:CurrentRoomID;constraint:OnDelete:SET NULL" json:"-"`
	RequestedRoom *Room `gorm:"foreignKey:RequestedRoomID;constraint:OnDelete:SET NULL" json:"-"`
}

func (ChangeRequest) TableName() string {
	return "room_change_requests"
}
