package allocation

import (
	"context"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

// Criteria describe the room a candidate needs.
type Criteria struct {
	PreferredBlock string
	Gender         model.Gender
	RoomType       model.RoomType // empty matches any type
	ExcludeRoomID  int64
}

// Matcher picks rooms greedily: the least occupied eligible room of the
// preferred block, else the first eligible room across every block of the
// candidate's gender, by block name. It never crosses gender lines.
type Matcher struct{}

// FindRoom returns the chosen room with its Block set, or nil when no
// eligible room exists. The room row is locked where the dialect allows.
func (m *Matcher) FindRoom(ctx context.Context, s store.Store, c Criteria) (*model.Room, error) {
	blocks, err := s.EligibleBlocks(ctx, c.Gender)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	byID := make(map[int64]model.Block, len(blocks))
	ids := make([]int64, 0, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	if c.PreferredBlock != "" {
		for _, b := range blocks {
			if b.Name != c.PreferredBlock {
				continue
			}
			room, err := s.FindAvailableRoom(ctx, store.RoomQuery{
				BlockIDs:      []int64{b.ID},
				RoomType:      c.RoomType,
				ExcludeRoomID: c.ExcludeRoomID,
			})
			if err != nil {
				return nil, err
			}
			if room != nil {
				room.Block = b
				return room, nil
			}
			break
		}
	}

	room, err := s.FindAvailableRoom(ctx, store.RoomQuery{
		BlockIDs:      ids,
		RoomType:      c.RoomType,
		ExcludeRoomID: c.ExcludeRoomID,
		OrderByBlock:  true,
	})
	if err != nil || room == nil {
		return nil, err
	}
	room.Block = byID[room.BlockID]
	return room, nil
}
