package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/db/dbtest"
	"dorm-allocation-backend/internal/model"
)

func TestMigrateCreatesSingleAssignmentIndex(t *testing.T) {
	gormDB := dbtest.New(t)
	f := dbtest.NewFixture(t, gormDB)

	assert.True(t, gormDB.Migrator().HasIndex(&model.Assignment{}, db.CurrentAssignmentIndex))

	block := f.Block("A", model.GenderMale)
	room := f.Room(block, "A101", 4, model.RoomTypeFour)
	user := f.Student("Abebe", model.GenderMale)
	f.Assignment(user, &room)

	dup := model.Assignment{UserID: user.ID, RoomID: room.ID, AssignedBy: user.ID, Status: model.AssignmentActive}
	assert.Error(t, gormDB.Omit("User", "Room").Create(&dup).Error)

	// Historical rows do not count against the index.
	old := model.Assignment{UserID: user.ID, RoomID: room.ID, AssignedBy: user.ID, Status: model.AssignmentTransferred}
	assert.NoError(t, gormDB.Omit("User", "Room").Create(&old).Error)
}

func TestMigrateIsRepeatable(t *testing.T) {
	gormDB := dbtest.New(t)
	require.NoError(t, db.Migrate(gormDB))
}

func TestRoomCapacityCheck(t *testing.T) {
	gormDB := dbtest.New(t)
	f := dbtest.NewFixture(t, gormDB)
	block := f.Block("A", model.GenderMale)
	room := f.Room(block, "A101", 2, model.RoomTypeFour)

	err := gormDB.Model(&model.Room{}).Where("id = ?", room.ID).Update("current_occupancy", 3).Error
	assert.Error(t, err, "occupancy may not exceed capacity")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := db.Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}
