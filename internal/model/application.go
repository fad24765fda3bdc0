package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Application is a request for housing. Only approved applications are
// picked up by the allocation batch.
type Application struct {
	ID                  int64             `gorm:"primaryKey" json:"id"`
	UserID              int64             `gorm:"index;not null" json:"user_id"`
	PreferredBlock      string            `gorm:"size:128;index" json:"preferred_block"`
	PreferredRoomID     *int64            `json:"preferred_room_id,omitempty"`
	RoomTypePreference  *RoomType         `gorm:"size:16" json:"room_type_preference,omitempty"`
	ApplicationDate     time.Time         `gorm:"not null" json:"application_date"`
	PriorityScore       int               `gorm:"not null;default:0;index" json:"priority_score"`
	SpecialRequirements datatypes.JSON    `json:"special_requirements,omitempty"`
	MedicalConditions   string            `gorm:"type:text" json:"medical_conditions,omitempty"`
	Status              ApplicationStatus `gorm:"size:16;not null;default:draft;index" json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`

	// Associations
	User User `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// Requirements decodes SpecialRequirements. Malformed or non-array JSON counts as none.
func (a Application) Requirements() []string {
	if len(a.SpecialRequirements) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.SpecialRequirements, &out); err != nil {
		return nil
	}
	return out
}
