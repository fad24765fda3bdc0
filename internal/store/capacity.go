package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
)

// reserveSeatSQL takes one seat only while the room is still eligible. The
// status assignment comes first so that every dialect evaluates the CASE
// against the pre-increment occupancy.
const reserveSeatSQL = `UPDATE rooms SET ` +
	`status = CASE WHEN current_occupancy + 1 >= capacity THEN ? ELSE status END, ` +
	`current_occupancy = current_occupancy + 1, ` +
	`version = version + 1, ` +
	`updated_at = ? ` +
	`WHERE id = ? AND status = ? AND current_occupancy < capacity`

const releaseSeatSQL = `UPDATE rooms SET ` +
	`status = CASE WHEN status = ? THEN ? ELSE status END, ` +
	`current_occupancy = current_occupancy - 1, ` +
	`version = version + 1, ` +
	`updated_at = ? ` +
	`WHERE id = ? AND current_occupancy > 0`

// EligibleBlocks returns the active blocks housing the given gender, by name.
func (s *gormStore) EligibleBlocks(ctx context.Context, gender model.Gender) ([]model.Block, error) {
	var blocks []model.Block
	if err := s.db.WithContext(ctx).
		Where("gender = ? AND status = ?", gender, model.BlockActive).
		Order("name ASC").
		Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s blocks: %w", gender, err)
	}
	return blocks, nil
}

func (s *gormStore) GetBlock(ctx context.Context, id int64) (*model.Block, error) {
	var block model.Block
	if err := s.db.WithContext(ctx).First(&block, id).Error; err != nil {
		return nil, notFound(err, "block", id)
	}
	return &block, nil
}

func (s *gormStore) GetBlockByName(ctx context.Context, name string) (*model.Block, error) {
	var block model.Block
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&block).Error; err != nil {
		return nil, notFound(err, "block", name)
	}
	return &block, nil
}

// FindAvailableRoom returns the first eligible room for q, locking it on
// dialects that support row locks. It returns nil, nil when nothing matches.
func (s *gormStore) FindAvailableRoom(ctx context.Context, q RoomQuery) (*model.Room, error) {
	if len(q.BlockIDs) == 0 {
		return nil, nil
	}

	query := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Select("rooms.*").
		Joins("JOIN blocks ON blocks.id = rooms.block_id").
		Where("rooms.block_id IN ?", q.BlockIDs).
		Where("rooms.status = ? AND rooms.current_occupancy < rooms.capacity", model.RoomAvailable)
	if q.RoomType != "" {
		query = query.Where("rooms.room_type = ?", q.RoomType)
	}
	if q.ExcludeRoomID != 0 {
		query = query.Where("rooms.id <> ?", q.ExcludeRoomID)
	}
	if q.OrderByBlock {
		query = query.Order("blocks.name ASC")
	}

	var rooms []model.Room
	if err := query.
		Order("rooms.current_occupancy ASC").
		Order("rooms.id ASC").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Limit(1).
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to search rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).Preload("Block").First(&room, id).Error; err != nil {
		return nil, notFound(err, "room", id)
	}
	return &room, nil
}

// ReserveSeat takes one seat in the room, flipping it to occupied when it
// fills. ErrRoomUnavailable means another writer got there first.
func (s *gormStore) ReserveSeat(ctx context.Context, roomID int64) error {
	res := s.db.WithContext(ctx).Exec(reserveSeatSQL,
		string(model.RoomOccupied), time.Now(), roomID, string(model.RoomAvailable))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve seat in room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRoomUnavailable
	}
	return nil
}

// ReleaseSeat frees one seat. An occupied room drops back to available;
// maintenance and reserved rooms keep their status.
func (s *gormStore) ReleaseSeat(ctx context.Context, roomID int64) error {
	res := s.db.WithContext(ctx).Exec(releaseSeatSQL,
		string(model.RoomOccupied), string(model.RoomAvailable), time.Now(), roomID)
	if res.Error != nil {
		return fmt.Errorf("failed to release seat in room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room %d: %w", roomID, ErrNoOccupant)
	}
	return nil
}
