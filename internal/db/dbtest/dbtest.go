// Package dbtest provides migrated in-memory sqlite databases and row
// builders for tests.
package dbtest

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/model"
)

var (
	seq      atomic.Int64
	unsafeRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// New returns a migrated database private to the test. The single connection
// keeps every statement, transactional or not, on the same shared cache.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", unsafeRe.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gormDB
}

// Fixture inserts rows with sensible defaults and fails the test on error.
type Fixture struct {
	t  testing.TB
	DB *gorm.DB
}

func NewFixture(t testing.TB, gormDB *gorm.DB) *Fixture {
	return &Fixture{t: t, DB: gormDB}
}

func (f *Fixture) create(v any) {
	f.t.Helper()
	if err := f.DB.Omit(clause.Associations).Create(v).Error; err != nil {
		f.t.Fatalf("failed to create %T: %v", v, err)
	}
}

func (f *Fixture) Block(name string, gender model.Gender) model.Block {
	f.t.Helper()
	b := model.Block{Name: name, Gender: gender, Status: model.BlockActive, Floors: 3}
	f.create(&b)
	return b
}

func (f *Fixture) Room(block model.Block, number string, capacity int, roomType model.RoomType) model.Room {
	f.t.Helper()
	r := model.Room{
		RoomNumber: number,
		BlockID:    block.ID,
		Floor:      1,
		Capacity:   capacity,
		RoomType:   roomType,
		Status:     model.RoomAvailable,
	}
	f.create(&r)
	r.Block = block
	return r
}

// SetRoom overwrites a room's occupancy and status.
func (f *Fixture) SetRoom(room *model.Room, occupancy int, status model.RoomStatus) {
	f.t.Helper()
	if err := f.DB.Model(&model.Room{}).Where("id = ?", room.ID).
		Updates(map[string]any{"current_occupancy": occupancy, "status": status}).Error; err != nil {
		f.t.Fatalf("failed to update room %d: %v", room.ID, err)
	}
	room.CurrentOccupancy = occupancy
	room.Status = status
}

// Student creates an active student. An empty gender leaves it unset.
func (f *Fixture) Student(name string, gender model.Gender) model.User {
	f.t.Helper()
	u := model.User{
		Name:   name,
		Email:  emailFor(name),
		Role:   model.RoleStudent,
		Status: model.UserActive,
	}
	if gender != "" {
		u.Gender = &gender
	}
	f.create(&u)
	return u
}

func (f *Fixture) Supervisor(name, block string) model.User {
	f.t.Helper()
	u := model.User{
		Name:          name,
		Email:         emailFor(name),
		Role:          model.RoleSupervisor,
		Status:        model.UserActive,
		AssignedBlock: &block,
	}
	f.create(&u)
	return u
}

func (f *Fixture) Admin(name string) model.User {
	f.t.Helper()
	u := model.User{Name: name, Email: emailFor(name), Role: model.RoleAdmin, Status: model.UserActive}
	f.create(&u)
	return u
}

// Application creates an approved application.
func (f *Fixture) Application(user model.User, block string, score int, date time.Time) model.Application {
	f.t.Helper()
	a := model.Application{
		UserID:          user.ID,
		PreferredBlock:  block,
		ApplicationDate: date,
		PriorityScore:   score,
		Status:          model.ApplicationApproved,
	}
	f.create(&a)
	a.User = user
	return a
}

// Assignment seats the user in the room with an assigned assignment.
func (f *Fixture) Assignment(user model.User, room *model.Room) model.Assignment {
	f.t.Helper()
	a := model.Assignment{
		UserID:     user.ID,
		RoomID:     room.ID,
		AssignedBy: user.ID,
		AssignedAt: time.Now(),
		Status:     model.AssignmentAssigned,
	}
	f.create(&a)

	status := room.Status
	if room.CurrentOccupancy+1 >= room.Capacity {
		status = model.RoomOccupied
	}
	f.SetRoom(room, room.CurrentOccupancy+1, status)
	return a
}

// ChangeRequest creates an approved request. A nil room or empty block leaves
// that target unset.
func (f *Fixture) ChangeRequest(user model.User, current, requested *model.Room, block string, at time.Time) model.ChangeRequest {
	f.t.Helper()
	cr := model.ChangeRequest{
		UserID:      user.ID,
		RequestType: "transfer",
		Priority:    "medium",
		Status:      model.ChangeRequestApproved,
		RequestedAt: at,
	}
	if current != nil {
		cr.CurrentRoomID = &current.ID
	}
	if requested != nil {
		cr.RequestedRoomID = &requested.ID
	}
	if block != "" {
		cr.RequestedBlock = &block
	}
	f.create(&cr)
	return cr
}

// Leave creates a leave request routed to the supervisor at createdAt.
func (f *Fixture) Leave(user model.User, supervisorID int64, createdAt time.Time) model.LeaveRequest {
	f.t.Helper()
	lr := model.LeaveRequest{
		UserID:             user.ID,
		SupervisorID:       &supervisorID,
		LeaveType:          model.LeaveWeekend,
		StartDate:          createdAt,
		EndDate:            createdAt.Add(24 * time.Hour),
		ReturnDate:         createdAt.Add(48 * time.Hour),
		Destination:        "Home",
		Reason:             "visit",
		SupervisorApproval: model.ApprovalPending,
		Status:             model.LeaveSubmitted,
		CreatedAt:          createdAt,
	}
	f.create(&lr)
	return lr
}

func emailFor(name string) string {
	return strings.ToLower(unsafeRe.ReplaceAllString(name, ".")) + "@example.edu"
}
