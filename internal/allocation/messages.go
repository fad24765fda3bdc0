package allocation

import (
	"fmt"

	"dorm-allocation-backend/internal/notification"
)

func allocatedMessage(a *Allocation) notification.Message {
	return notification.Message{
		UserID: a.UserID,
		Type:   notification.TypeRoomAllocated,
		Title:  "Room Allocation Confirmed",
		Body: fmt.Sprintf("Congratulations! You have been allocated to Room %s in Block %s. "+
			"Room Type: %d-bed. Please check your dashboard for more details.",
			a.RoomNumber, a.Block, a.RoomType.Beds()),
		Data: map[string]any{
			"room_id":       a.RoomID,
			"room_number":   a.RoomNumber,
			"block":         a.Block,
			"room_type":     a.RoomType,
			"assignment_id": a.AssignmentID,
		},
	}
}

func reallocatedMessage(a *Allocation) notification.Message {
	return notification.Message{
		UserID: a.UserID,
		Type:   notification.TypeRoomReallocated,
		Title:  "Room Change Approved",
		Body: fmt.Sprintf("Your room change request has been approved! You have been moved from "+
			"Room %s (Block %s) to Room %s (Block %s). Room Type: %d-bed. "+
			"Please check your dashboard for more details.",
			a.PreviousRoomNumber, a.PreviousBlock, a.RoomNumber, a.Block, a.RoomType.Beds()),
		Data: map[string]any{
			"old_room_id":       a.PreviousRoomID,
			"old_room_number":   a.PreviousRoomNumber,
			"old_block":         a.PreviousBlock,
			"new_room_id":       a.RoomID,
			"new_room_number":   a.RoomNumber,
			"new_block":         a.Block,
			"room_type":         a.RoomType,
			"assignment_id":     a.AssignmentID,
			"change_request_id": a.ChangeRequestID,
		},
	}
}
