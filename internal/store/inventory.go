package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/parse"
)

// UpsertInventory creates or updates blocks and rooms from an inventory.
// Occupancy and room status are never touched; a room whose new capacity
// would fall below its occupancy is skipped.
func (s *gormStore) UpsertInventory(ctx context.Context, blocks []BlockItem, rooms []RoomItem) (*InventoryResult, error) {
	result := &InventoryResult{}

	existingRooms, err := s.fetchAllRooms(ctx)
	if err != nil {
		log.Printf("Warning: could not pre-fetch rooms: %v", err)
		existingRooms = make(map[string]model.Room)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Phase 1: blocks
		blockMap, err := upsertBlocks(tx, blocks)
		if err != nil {
			return fmt.Errorf("failed to process blocks: %w", err)
		}
		result.Blocks = len(blocks)

		// Phase 2: rooms
		var roomsToUpsert []model.Room
		for _, item := range rooms {
			room, ok := prepareRoom(item, blockMap, existingRooms)
			if !ok {
				result.Skipped++
				continue
			}
			roomsToUpsert = append(roomsToUpsert, room)
		}
		if len(roomsToUpsert) == 0 {
			return nil
		}

		log.Printf("Batch upserting %d rooms...", len(roomsToUpsert))
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"block_id", "floor", "capacity", "room_type", "updated_at"}),
		}).Create(&roomsToUpsert).Error; err != nil {
			return fmt.Errorf("batch upsert rooms failed: %w", err)
		}
		result.Rooms = len(roomsToUpsert)

		return refreshBlockTotals(tx)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *gormStore) fetchAllRooms(ctx context.Context) (map[string]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Find(&rooms).Error; err != nil {
		return nil, err
	}
	roomMap := make(map[string]model.Room, len(rooms))
	for _, r := range rooms {
		roomMap[r.RoomNumber] = r
	}
	return roomMap, nil
}

// upsertBlocks saves the listed blocks and returns every block by name.
// Blocks referenced only by room numbers must already exist.
func upsertBlocks(tx *gorm.DB, blocks []BlockItem) (map[string]model.Block, error) {
	var blockList []model.Block
	for _, item := range blocks {
		gender, err := parse.NormalizeGender(item.Gender)
		if err != nil || gender == "" {
			return nil, fmt.Errorf("block %q: gender is required: %v", item.Name, err)
		}
		status := model.BlockStatus(strings.ToLower(item.Status))
		if status == "" {
			status = model.BlockActive
		}
		if !status.Valid() {
			return nil, fmt.Errorf("block %q: unsupported status %q", item.Name, item.Status)
		}
		blockList = append(blockList, model.Block{
			Name:   strings.TrimSpace(item.Name),
			Gender: gender,
			Status: status,
			Floors: item.Floors,
		})
	}

	if len(blockList) > 0 {
		log.Printf("Batch upserting %d blocks...", len(blockList))
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"gender", "status", "floors", "updated_at"}),
		}).Create(&blockList).Error; err != nil {
			return nil, fmt.Errorf("batch upsert blocks failed: %w", err)
		}
	}

	var allBlocks []model.Block
	if err := tx.Find(&allBlocks).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve blocks after upsert: %w", err)
	}
	blockMap := make(map[string]model.Block, len(allBlocks))
	for _, b := range allBlocks {
		blockMap[b.Name] = b
	}
	return blockMap, nil
}

func prepareRoom(item RoomItem, blockMap map[string]model.Block, existingRooms map[string]model.Room) (model.Room, bool) {
	number := strings.TrimSpace(item.Number)
	blockName := strings.TrimSpace(item.Block)
	floor := item.Floor
	if blockName == "" || floor == 0 {
		parsed, err := parse.ParseRoomNumber(number)
		if err != nil {
			log.Printf("Error parsing room number %q: %v", number, err)
			return model.Room{}, false
		}
		if blockName == "" {
			blockName = parsed.Block
		}
		if floor == 0 {
			floor = parsed.Floor
		}
	}

	block, ok := blockMap[blockName]
	if !ok {
		log.Printf("Error: unknown block %q for room %s. Skipping.", blockName, number)
		return model.Room{}, false
	}

	roomType, err := parse.NormalizeRoomType(item.Type)
	if err != nil {
		log.Printf("Error: room %s: %v. Skipping.", number, err)
		return model.Room{}, false
	}
	capacity := item.Capacity
	if capacity == 0 {
		capacity = roomType.Beds()
	}
	if capacity < 1 {
		log.Printf("Error: room %s has capacity %d. Skipping.", number, capacity)
		return model.Room{}, false
	}

	if old, exists := existingRooms[number]; exists && old.CurrentOccupancy > capacity {
		log.Printf("Error: room %s holds %d residents, cannot shrink to %d. Skipping.", number, old.CurrentOccupancy, capacity)
		return model.Room{}, false
	}

	return model.Room{
		RoomNumber: number,
		BlockID:    block.ID,
		Floor:      floor,
		Capacity:   capacity,
		RoomType:   roomType,
		Status:     model.RoomAvailable,
	}, true
}

// refreshBlockTotals recomputes the administrative room count per block.
func refreshBlockTotals(tx *gorm.DB) error {
	return tx.Exec(`UPDATE blocks SET total_rooms = (SELECT COUNT(*) FROM rooms WHERE rooms.block_id = blocks.id)`).Error
}
