package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an inbox entry shown on a user's dashboard.
type Notification struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	UserID    int64          `gorm:"index;not null" json:"user_id"`
	Type      string         `gorm:"size:64;not null" json:"type"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSON `json:"data,omitempty"`
	IsRead    bool           `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}
