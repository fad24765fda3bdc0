package allocation

import (
	"time"

	"dorm-allocation-backend/internal/model"
)

// Filters narrow a batch run. Empty fields match everything. ActorID is
// recorded as AssignedBy; zero means the configured system actor.
type Filters struct {
	Block   string       `json:"block" form:"block"`
	Gender  model.Gender `json:"gender" form:"gender"`
	ActorID int64        `json:"-" form:"-"`
}

// BatchResult summarises one allocation or reallocation run. Allocations and
// Failures are in processing order.
type BatchResult struct {
	TotalCandidates   int          `json:"total_candidates"`
	AllocatedCount    int          `json:"allocated_count"`
	FailedCount       int          `json:"failed_count"`
	Allocations       []Allocation `json:"allocations"`
	Failures          []Failure    `json:"failures"`
	NotificationsSent int          `json:"notifications_sent"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
}

// Allocation records one committed placement.
type Allocation struct {
	ApplicationID   int64          `json:"application_id,omitempty"`
	ChangeRequestID int64          `json:"change_request_id,omitempty"`
	AssignmentID    int64          `json:"assignment_id"`
	UserID          int64          `json:"user_id"`
	UserName        string         `json:"user_name"`
	RoomID          int64          `json:"room_id"`
	RoomNumber      string         `json:"room_number"`
	Block           string         `json:"block"`
	RoomType        model.RoomType `json:"room_type"`

	// Set by reallocation only.
	PreviousRoomID     int64  `json:"previous_room_id,omitempty"`
	PreviousRoomNumber string `json:"previous_room_number,omitempty"`
	PreviousBlock      string `json:"previous_block,omitempty"`
}

// Failure records one candidate that could not be placed.
type Failure struct {
	ApplicationID   int64  `json:"application_id,omitempty"`
	ChangeRequestID int64  `json:"change_request_id,omitempty"`
	UserID          int64  `json:"user_id"`
	UserName        string `json:"user_name"`
	Reason          string `json:"reason"`
}
