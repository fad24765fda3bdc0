package allocation

import (
	"context"
	"log"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

// Reallocate moves residents with approved change requests, oldest request
// first. f.Gender is ignored.
func (p *Processor) Reallocate(ctx context.Context, f Filters) (*BatchResult, error) {
	actor := p.actor(f)
	return p.run(ctx, kindReallocate, func(tx store.Store) ([]candidate, error) {
		requests, err := tx.ApprovedChangeRequests(ctx, f.Block)
		if err != nil {
			return nil, err
		}
		log.Printf("Reallocation: %d approved change requests (block=%q)", len(requests), f.Block)

		candidates := make([]candidate, 0, len(requests))
		for i := range requests {
			cr := &requests[i]
			candidates = append(candidates, candidate{
				changeRequestID: cr.ID,
				userID:          cr.UserID,
				userName:        cr.User.Name,
				place: func(ctx context.Context, sp store.Store) (*Allocation, *notification.Message, error) {
					return p.reallocate(ctx, sp, cr, actor)
				},
			})
		}
		return candidates, nil
	})
}

// targetBlock is the requested room's block, else the requested block, else
// the resident's current block.
func targetBlock(cr *model.ChangeRequest, current *model.Assignment) string {
	if cr.RequestedRoom != nil && cr.RequestedRoom.Block.Name != "" {
		return cr.RequestedRoom.Block.Name
	}
	if cr.RequestedBlock != nil && *cr.RequestedBlock != "" {
		return *cr.RequestedBlock
	}
	return current.Room.Block.Name
}

func (p *Processor) reallocate(ctx context.Context, sp store.Store, cr *model.ChangeRequest, actor int64) (*Allocation, *notification.Message, error) {
	current, err := sp.CurrentAssignment(ctx, cr.UserID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, errNoCurrentAssignment
	}

	gender := cr.User.GenderValue()
	if gender == "" {
		return nil, nil, errGenderNotSpecified
	}

	block := targetBlock(cr, current)
	criteria := Criteria{
		PreferredBlock: block,
		Gender:         gender,
		ExcludeRoomID:  current.RoomID,
	}
	if cr.RequestedRoom != nil {
		criteria.RoomType = cr.RequestedRoom.RoomType
	}
	room, err := p.matcher.FindRoom(ctx, sp, criteria)
	if err != nil {
		return nil, nil, err
	}
	if room == nil {
		return nil, nil, noRoomError(block, gender)
	}

	// The old assignment leaves the current set first so the new one does
	// not collide with it on the single-assignment index.
	if err := sp.SetAssignmentStatus(ctx, current, model.AssignmentInactive); err != nil {
		return nil, nil, err
	}
	assignment, err := p.seat(ctx, sp, cr.UserID, current.ApplicationID, room, actor)
	if err != nil {
		return nil, nil, err
	}
	if err := sp.ReleaseSeat(ctx, current.RoomID); err != nil {
		return nil, nil, err
	}
	if err := sp.SetChangeRequestStatus(ctx, cr, model.ChangeRequestCompleted, p.now()); err != nil {
		return nil, nil, err
	}

	alloc := &Allocation{
		ChangeRequestID:    cr.ID,
		AssignmentID:       assignment.ID,
		UserID:             cr.UserID,
		UserName:           cr.User.Name,
		RoomID:             room.ID,
		RoomNumber:         room.RoomNumber,
		Block:              room.Block.Name,
		RoomType:           room.RoomType,
		PreviousRoomID:     current.RoomID,
		PreviousRoomNumber: current.Room.RoomNumber,
		PreviousBlock:      current.Room.Block.Name,
	}
	msg := reallocatedMessage(alloc)
	return alloc, &msg, nil
}
