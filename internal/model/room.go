package model

import "time"

// Room is a bookable room. CurrentOccupancy never leaves [0, Capacity];
// the check constraints keep that true even for writers outside this service.
type Room struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	RoomNumber       string     `gorm:"uniqueIndex;size:32;not null" json:"room_number"`
	BlockID          int64      `gorm:"index;not null" json:"block_id"`
	Floor            int        `json:"floor"`
	Capacity         int        `gorm:"not null;check:chk_rooms_capacity,capacity >= 1" json:"capacity"`
	CurrentOccupancy int        `gorm:"not null;default:0;check:chk_rooms_occupancy,current_occupancy >= 0 AND current_occupancy <= capacity" json:"current_occupancy"`
	RoomType         RoomType   `gorm:"size:16;not null;index" json:"room_type"`
	Status           RoomStatus `gorm:"size:16;not null;default:available;index" json:"status"`
	Version          int64      `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	Block Block `gorm:"constraint:OnDelete:RESTRICT" json:"block,omitempty"`
}

// Eligible reports whether the room can take one more resident.
func (r Room) Eligible() bool {
	return r.Status == RoomAvailable && r.CurrentOccupancy < r.Capacity
}
