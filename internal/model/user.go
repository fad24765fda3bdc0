package model

import "time"

// User is a resident, supervisor or administrator.
type User struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role          Role       `gorm:"size:16;not null;index" json:"role"`
	Status        UserStatus `gorm:"size:16;not null;default:pending" json:"status"`
	Gender        *Gender    `gorm:"size:16" json:"gender,omitempty"`
	YearLevel     *int       `json:"year_level,omitempty"`
	AssignedBlock *string    `gorm:"size:128;index" json:"assigned_block,omitempty"` // supervisors only
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// GenderValue returns the user's gender, or "" when unset.
func (u User) GenderValue() Gender {
	if u.Gender == nil {
		return ""
	}
	return *u.Gender
}
