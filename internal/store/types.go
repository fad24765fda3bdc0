package store

import "dorm-allocation-backend/internal/model"

// RoomQuery selects eligible rooms for the matcher.
type RoomQuery struct {
	BlockIDs      []int64
	RoomType      model.RoomType // empty matches any type
	ExcludeRoomID int64
	// OrderByBlock sorts by block name before occupancy, for the cross-block pass.
	OrderByBlock bool
}

// CandidateFilter narrows the approved applications loaded for a batch.
type CandidateFilter struct {
	Block  string
	Gender model.Gender
}

// Workload counts the leave requests routed to one supervisor.
type Workload struct {
	Pending  int64 `json:"pending_requests"`
	Approved int64 `json:"approved_requests"`
	Active   int64 `json:"active_leaves"`
}

// Stats is the allocation summary shown on the admin dashboard.
type Stats struct {
	TotalApplications     int64   `json:"total_applications"`
	PendingApplications   int64   `json:"pending_applications"`
	ApprovedApplications  int64   `json:"approved_applications"`
	RejectedApplications  int64   `json:"rejected_applications"`
	CompletedApplications int64   `json:"completed_applications"`
	TotalAllocations      int64   `json:"total_allocations"`
	ActiveAllocations     int64   `json:"active_allocations"`
	TotalRooms            int64   `json:"total_rooms"`
	AvailableRooms        int64   `json:"available_rooms"`
	TotalCapacity         int64   `json:"total_capacity"`
	TotalOccupancy        int64   `json:"total_occupancy"`
	OccupancyRate         float64 `json:"occupancy_rate"`
}

// BlockItem is one building from an inventory file.
type BlockItem struct {
	Name   string `yaml:"name"`
	Gender string `yaml:"gender"`
	Status string `yaml:"status"`
	Floors int    `yaml:"floors"`
}

// RoomItem is one room from an inventory file. Block and Floor may be left
// empty when the room number encodes them, e.g. "A-204".
type RoomItem struct {
	Number   string `yaml:"number"`
	Block    string `yaml:"block"`
	Floor    int    `yaml:"floor"`
	Capacity int    `yaml:"capacity"`
	Type     string `yaml:"type"`
}

// InventoryResult summarises an inventory import.
type InventoryResult struct {
	Blocks  int
	Rooms   int
	Skipped int
}
