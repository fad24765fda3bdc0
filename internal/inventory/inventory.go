// Package inventory reads room inventory files for import.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"dorm-allocation-backend/internal/store"
)

var ErrEmpty = errors.New("inventory lists no blocks or rooms")

// File is the on-disk inventory layout:
//
//	blocks:
//	  - {name: A, gender: male, floors: 4}
//	rooms:
//	  - {number: A-101, type: four}
type File struct {
	Blocks []store.BlockItem `yaml:"blocks"`
	Rooms  []store.RoomItem  `yaml:"rooms"`
}

// Load decodes an inventory file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var inv File
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode inventory %s: %w", path, err)
	}
	if len(inv.Blocks) == 0 && len(inv.Rooms) == 0 {
		return nil, ErrEmpty
	}
	return &inv, nil
}

// Import loads the file at path and upserts it into the store.
func Import(ctx context.Context, s store.Store, path string) (*store.InventoryResult, error) {
	inv, err := Load(path)
	if err != nil {
		return nil, err
	}
	log.Printf("Importing %d blocks and %d rooms from %s", len(inv.Blocks), len(inv.Rooms), path)

	result, err := s.UpsertInventory(ctx, inv.Blocks, inv.Rooms)
	if err != nil {
		return nil, fmt.Errorf("failed to import inventory: %w", err)
	}
	if result.Skipped > 0 {
		log.Printf("Skipped %d rooms; see errors above", result.Skipped)
	}
	return result, nil
}
