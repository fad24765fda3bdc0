package model

import "time"

// Block represents a dormitory building. Name is the human key used by
// applications, supervisors and the HTTP routes.
type Block struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	Name       string      `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Gender     Gender      `gorm:"size:16;not null;index" json:"gender"`
	Status     BlockStatus `gorm:"size:16;not null;default:active" json:"status"`
	Floors     int         `json:"floors"`
	TotalRooms int         `json:"total_rooms"`
	CreatedAt  time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null" json:"updated_at"`

	// Associations
	Rooms []Room `gorm:"foreignKey:BlockID" json:"-"`
}
