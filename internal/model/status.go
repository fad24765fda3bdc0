package model

// Gender is the applicant gender, and for blocks the gender a building houses.
// "mixed" is accepted on blocks but never equals an applicant gender, so mixed
// blocks are never matched by allocation.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderMixed  Gender = "mixed"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderMixed:
		return true
	}
	return false
}

// BlockStatus is the operational state of a building.
type BlockStatus string

const (
	BlockActive      BlockStatus = "active"
	BlockMaintenance BlockStatus = "maintenance"
	BlockInactive    BlockStatus = "inactive"
)

func (s BlockStatus) Valid() bool {
	switch s {
	case BlockActive, BlockMaintenance, BlockInactive:
		return true
	}
	return false
}

// RoomType is the bed layout of a room.
type RoomType string

const (
	RoomTypeFour RoomType = "four"
	RoomTypeSix  RoomType = "six"
)

func (t RoomType) Valid() bool {
	return t == RoomTypeFour || t == RoomTypeSix
}

// Beds returns the nominal bed count, used in notification text.
func (t RoomType) Beds() int {
	switch t {
	case RoomTypeFour:
		return 4
	case RoomTypeSix:
		return 6
	}
	return 0
}

// RoomStatus is the occupancy state of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomReserved:
		return true
	}
	return false
}

var roomTransitions = map[RoomStatus][]RoomStatus{
	RoomAvailable:   {RoomOccupied, RoomMaintenance, RoomReserved},
	RoomOccupied:    {RoomAvailable, RoomMaintenance},
	RoomMaintenance: {RoomAvailable},
	RoomReserved:    {RoomAvailable, RoomOccupied},
}

func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	return allowed(roomTransitions, s, next)
}

// Role is a user's role in the system.
type Role string

const (
	RoleStudent    Role = "student"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// UserStatus is the account state of a user.
type UserStatus string

const (
	UserPending   UserStatus = "pending"
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
	UserRejected  UserStatus = "rejected"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserPending, UserActive, UserInactive, UserSuspended, UserRejected:
		return true
	}
	return false
}

// ApplicationStatus is the lifecycle state of a housing application.
type ApplicationStatus string

const (
	ApplicationDraft     ApplicationStatus = "draft"
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationCompleted ApplicationStatus = "completed"
	ApplicationCancelled ApplicationStatus = "cancelled"
)

// ApplicationStatuses lists every status in display order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationDraft, ApplicationSubmitted, ApplicationPending, ApplicationApproved,
	ApplicationRejected, ApplicationCompleted, ApplicationCancelled,
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:     {ApplicationSubmitted, ApplicationPending, ApplicationCancelled},
	ApplicationSubmitted: {ApplicationPending, ApplicationCancelled},
	ApplicationPending:   {ApplicationApproved, ApplicationRejected, ApplicationCancelled},
	ApplicationApproved:  {ApplicationCompleted, ApplicationCancelled},
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return allowed(applicationTransitions, s, next)
}

// AssignmentStatus is the lifecycle state of a room assignment.
type AssignmentStatus string

const (
	AssignmentAssigned    AssignmentStatus = "assigned"
	AssignmentActive      AssignmentStatus = "active"
	AssignmentInactive    AssignmentStatus = "inactive"
	AssignmentCompleted   AssignmentStatus = "completed"
	AssignmentCancelled   AssignmentStatus = "cancelled"
	AssignmentTransferred AssignmentStatus = "transferred"
)

// CurrentAssignmentStatuses are the statuses that count as a user's current assignment.
var CurrentAssignmentStatuses = []AssignmentStatus{AssignmentAssigned, AssignmentActive}

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentActive, AssignmentInactive,
		AssignmentCompleted, AssignmentCancelled, AssignmentTransferred:
		return true
	}
	return false
}

// IsCurrent reports whether the assignment still holds a seat.
func (s AssignmentStatus) IsCurrent() bool {
	return s == AssignmentAssigned || s == AssignmentActive
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned: {AssignmentActive, AssignmentInactive, AssignmentCancelled, AssignmentTransferred},
	AssignmentActive:   {AssignmentInactive, AssignmentCompleted, AssignmentTransferred},
}

func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	return allowed(assignmentTransitions, s, next)
}

// ChangeRequestStatus is the lifecycle state of a room change request.
type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "pending"
	ChangeRequestApproved  ChangeRequestStatus = "approved"
	ChangeRequestRejected  ChangeRequestStatus = "rejected"
	ChangeRequestCompleted ChangeRequestStatus = "completed"
	ChangeRequestCancelled ChangeRequestStatus = "cancelled"
)

func (s ChangeRequestStatus) Valid() bool {
	switch s {
	case ChangeRequestPending, ChangeRequestApproved, ChangeRequestRejected,
		ChangeRequestCompleted, ChangeRequestCancelled:
		return true
	}
	return false
}

var changeRequestTransitions = map[ChangeRequestStatus][]ChangeRequestStatus{
	ChangeRequestPending:  {ChangeRequestApproved, ChangeRequestRejected, ChangeRequestCancelled},
	ChangeRequestApproved: {ChangeRequestCompleted, ChangeRequestCancelled},
}

func (s ChangeRequestStatus) CanTransitionTo(next ChangeRequestStatus) bool {
	return allowed(changeRequestTransitions, s, next)
}

// LeaveApproval is the supervisor's decision on a leave request.
type LeaveApproval string

const (
	ApprovalPending  LeaveApproval = "pending"
	ApprovalApproved LeaveApproval = "approved"
	ApprovalRejected LeaveApproval = "rejected"
)

func (a LeaveApproval) Valid() bool {
	return a == ApprovalPending || a == ApprovalApproved || a == ApprovalRejected
}

// LeaveStatus is the lifecycle state of a temporary leave request.
type LeaveStatus string

const (
	LeaveDraft     LeaveStatus = "draft"
	LeaveSubmitted LeaveStatus = "submitted"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCompleted LeaveStatus = "completed"
	LeaveOverdue   LeaveStatus = "overdue"
)

func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveDraft, LeaveSubmitted, LeaveApproved, LeaveRejected, LeaveCompleted, LeaveOverdue:
		return true
	}
	return false
}

var leaveTransitions = map[LeaveStatus][]LeaveStatus{
	LeaveDraft:     {LeaveSubmitted},
	LeaveSubmitted: {LeaveApproved, LeaveRejected},
	LeaveApproved:  {LeaveCompleted, LeaveOverdue},
	LeaveOverdue:   {LeaveCompleted},
}

func (s LeaveStatus) CanTransitionTo(next LeaveStatus) bool {
	return allowed(leaveTransitions, s, next)
}

// LeaveType is the reason category of a leave request.
type LeaveType string

const (
	LeaveWeekend     LeaveType = "weekend"
	LeaveHoliday     LeaveType = "holiday"
	LeaveEmergency   LeaveType = "emergency"
	LeaveMedical     LeaveType = "medical"
	LeaveFamilyVisit LeaveType = "family_visit"
	LeaveOther       LeaveType = "other"
)

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveWeekend, LeaveHoliday, LeaveEmergency, LeaveMedical, LeaveFamilyVisit, LeaveOther:
		return true
	}
	return false
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
