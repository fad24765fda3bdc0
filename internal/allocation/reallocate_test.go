package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/notification"
)

func TestReallocate_MovesResidentToRequestedBlock(t *testing.T) {
	h := newHarness(t)
	blockA := h.fixture.Block("A", model.GenderMale)
	blockB := h.fixture.Block("B", model.GenderMale)
	oldRoom := h.fixture.Room(blockA, "A101", 2, model.RoomTypeFour)
	newRoom := h.fixture.Room(blockB, "B101", 6, model.RoomTypeSix)

	x := h.fixture.Student("Xavier", model.GenderMale)
	roommate := h.fixture.Student("Roommate", model.GenderMale)
	old := h.fixture.Assignment(x, &oldRoom)
	h.fixture.Assignment(roommate, &oldRoom)
	require.Equal(t, model.RoomOccupied, oldRoom.Status)
	cr := h.fixture.ChangeRequest(x, &oldRoom, nil, "B", fixedNow)

	result, err := h.proc.Reallocate(context.Background(), Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, result.AllocatedCount)
	alloc := result.Allocations[0]
	assert.Equal(t, cr.ID, alloc.ChangeRequestID)
	assert.Equal(t, newRoom.ID, alloc.RoomID)
	assert.Equal(t, oldRoom.ID, alloc.PreviousRoomID)
	assert.Equal(t, "A", alloc.PreviousBlock)

	gotOld := h.room(oldRoom.ID)
	assert.Equal(t, 1, gotOld.CurrentOccupancy)
	assert.Equal(t, model.RoomAvailable, gotOld.Status, "an occupied room reopens when a seat frees up")
	assert.Equal(t, 1, h.room(newRoom.ID).CurrentOccupancy)

	assignments := h.assignments(x.ID)
	require.Len(t, assignments, 2)
	assert.Equal(t, old.ID, assignments[0].ID)
	assert.Equal(t, model.AssignmentInactive, assignments[0].Status)
	assert.Equal(t, model.AssignmentAssigned, assignments[1].Status)
	assert.Equal(t, newRoom.ID, assignments[1].RoomID)

	var stored model.ChangeRequest
	require.NoError(t, h.db.First(&stored, cr.ID).Error)
	assert.Equal(t, model.ChangeRequestCompleted, stored.Status)
	require.NotNil(t, stored.ProcessedAt)

	require.Len(t, h.notifier.msgs, 1)
	msg := h.notifier.msgs[0]
	assert.Equal(t, notification.TypeRoomReallocated, msg.Type)
	assert.Equal(t, "Room Change Approved", msg.Title)
	assert.Equal(t, "Your room change request has been approved! You have been moved from Room A101 (Block A) "+
		"to Room B101 (Block B). Room Type: 6-bed. Please check your dashboard for more details.", msg.Body)
}

func TestReallocate_RequestedRoomSetsBlockAndType(t *testing.T) {
	h := newHarness(t)
	blockA := h.fixture.Block("A", model.GenderMale)
	blockB := h.fixture.Block("B", model.GenderMale)
	oldRoom := h.fixture.Room(blockA, "A101", 4, model.RoomTypeFour)
	h.fixture.Room(blockB, "B101", 6, model.RoomTypeSix)
	requested := h.fixture.Room(blockB, "B102", 4, model.RoomTypeFour)
	other := h.fixture.Room(blockB, "B103", 4, model.RoomTypeFour)
	h.fixture.SetRoom(&requested, 1, model.RoomAvailable)

	x := h.fixture.Student("Xavier", model.GenderMale)
	h.fixture.Assignment(x, &oldRoom)
	h.fixture.ChangeRequest(x, &oldRoom, &requested, "", fixedNow)

	result, err := h.proc.Reallocate(context.Background(), Filters{Block: "B"})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, other.ID, result.Allocations[0].RoomID, "least occupied four-bed room in the requested room's block")
}

func TestReallocate_Failures(t *testing.T) {
	h := newHarness(t)
	blockA := h.fixture.Block("A", model.GenderMale)
	only := h.fixture.Room(blockA, "A101", 4, model.RoomTypeFour)

	homeless := h.fixture.Student("Homeless", model.GenderMale)
	stuck := h.fixture.Student("Stuck", model.GenderMale)
	h.fixture.Assignment(stuck, &only)
	first := h.fixture.ChangeRequest(homeless, nil, nil, "A", fixedNow)
	second := h.fixture.ChangeRequest(stuck, &only, nil, "", fixedNow.Add(time.Minute))

	result, err := h.proc.Reallocate(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCandidates)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, first.ID, result.Failures[0].ChangeRequestID)
	assert.Equal(t, "no current assignment", result.Failures[0].Reason)
	assert.Equal(t, second.ID, result.Failures[1].ChangeRequestID)
	assert.Equal(t, "no available rooms in block A for male students", result.Failures[1].Reason,
		"the resident's own room is never a target")

	assert.Equal(t, 1, h.room(only.ID).CurrentOccupancy)
	assignments := h.assignments(stuck.ID)
	require.Len(t, assignments, 1)
	assert.Equal(t, model.AssignmentAssigned, assignments[0].Status, "a failed move leaves the old assignment current")
}
