package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/api"
	"dorm-allocation-backend/internal/db/dbtest"
	"dorm-allocation-backend/internal/inventory"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/rotation"
	"dorm-allocation-backend/internal/scheduler"
	"dorm-allocation-backend/internal/store"
)

const rooms = `
blocks:
  - {name: A, gender: male, floors: 2}
  - {name: B, gender: male, floors: 2}
  - {name: C, gender: female, floors: 2}
rooms:
  - {number: A-101, type: four, capacity: 1}
  - {number: B-101, type: four}
  - {number: C-101, type: six}
`

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TestAllocationLifecycle drives allocation, reallocation and leave routing
// through the HTTP API and checks the database and inboxes after each step.
func TestAllocationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---
	gormDB := dbtest.New(t)
	s := store.NewGormStore(gormDB)
	fixture := dbtest.NewFixture(t, gormDB)

	path := filepath.Join(t.TempDir(), "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rooms), 0o600))
	_, err := inventory.Import(context.Background(), s, path)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push is skipped without keys; inbox rows are still written.
	pool := notification.NewWorkerPool(2, 16, s, &webpush.Options{})
	pool.Start(ctx)
	defer pool.Close()

	reg := prometheus.NewRegistry()
	processor := allocation.NewProcessor(s, pool, allocation.NewMetrics(reg), cfg.Allocation)
	rotationSvc := rotation.NewService(s, pool, cfg.Rotation)
	cache := mw.NewResponseCache(time.Minute)
	router := api.NewRouter(cfg, api.NewHandler(s, processor, rotationSvc, cache, nil), reg)

	admin := fixture.Admin("Registrar")
	supervisor := fixture.Supervisor("Supervisor B", "B")
	abebe := fixture.Student("Abebe", model.GenderMale)
	chala := fixture.Student("Chala", model.GenderMale)
	hana := fixture.Student("Hana", model.GenderFemale)
	now := time.Now()
	fixture.Application(abebe, "A", 90, now)
	fixture.Application(chala, "A", 70, now)
	fixture.Application(hana, "A", 50, now)

	call := func(method, path string, user model.User, body any) (int, envelope) {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(mw.UserIDHeader, strconv.FormatInt(user.ID, 10))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var env envelope
		if w.Code != http.StatusNoContent {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
		}
		return w.Code, env
	}

	inbox := func(user model.User) []model.Notification {
		t.Helper()
		var list []model.Notification
		require.Eventually(t, func() bool {
			list = nil
			err := gormDB.Where("user_id = ?", user.ID).Order("id").Find(&list).Error
			return err == nil && len(list) > 0
		}, 2*time.Second, 10*time.Millisecond)
		return list
	}

	roomOf := func(user model.User) string {
		t.Helper()
		current, err := s.CurrentAssignment(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, current)
		return current.Room.RoomNumber
	}

	// --- Cycle 1: approved applications are placed ---
	t.Run("Cycle 1: Applicants Are Allocated", func(t *testing.T) {
		code, env := call(http.MethodPost, "/api/allocations/auto", admin, nil)
		require.Equal(t, http.StatusOK, code, env.Message)

		var result allocation.BatchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, 3, result.TotalCandidates)
		assert.Equal(t, 3, result.AllocatedCount)
		assert.Equal(t, 3, result.NotificationsSent)

		// A-101 has one bed, so the second male applicant falls back to B.
		assert.Equal(t, "A-101", roomOf(abebe))
		assert.Equal(t, "B-101", roomOf(chala))
		assert.Equal(t, "C-101", roomOf(hana))

		msgs := inbox(chala)
		assert.Equal(t, notification.TypeRoomAllocated, msgs[0].Type)
		assert.Contains(t, msgs[0].Message, "B-101")
	})

	// --- Cycle 2: an approved change request moves a resident ---
	t.Run("Cycle 2: Resident Is Reallocated", func(t *testing.T) {
		var from model.Room
		require.NoError(t, gormDB.Where("room_number = ?", "A-101").First(&from).Error)
		fixture.ChangeRequest(abebe, &from, nil, "B", time.Now())

		code, env := call(http.MethodPost, "/api/allocations/reallocate", admin, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
		var result allocation.BatchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		require.Equal(t, 1, result.AllocatedCount, result.Failures)

		assert.Equal(t, "B-101", roomOf(abebe))
		require.NoError(t, gormDB.First(&from, from.ID).Error)
		assert.Equal(t, 0, from.CurrentOccupancy)
		assert.Equal(t, model.RoomAvailable, from.Status)

		code, env = call(http.MethodGet, "/api/allocations/stats", admin, nil)
		require.Equal(t, http.StatusOK, code)
		var stats store.Stats
		require.NoError(t, json.Unmarshal(env.Data, &stats))
		assert.Equal(t, int64(3), stats.ActiveAllocations)
		assert.Equal(t, int64(4), stats.TotalAllocations)
	})

	// --- Cycle 3: a resident's leave is routed to their block's supervisor ---
	t.Run("Cycle 3: Leave Is Routed", func(t *testing.T) {
		start := time.Now().AddDate(0, 0, 1)
		code, env := call(http.MethodPost, "/api/leave-requests", chala, map[string]any{
			"leave_type": "weekend",
			"start_date": start,
			"end_date":   start.AddDate(0, 0, 2),
		})
		require.Equal(t, http.StatusCreated, code, env.Message)

		var lr model.LeaveRequest
		require.NoError(t, json.Unmarshal(env.Data, &lr))
		require.NotNil(t, lr.SupervisorID)
		assert.Equal(t, supervisor.ID, *lr.SupervisorID)

		msgs := inbox(supervisor)
		assert.Equal(t, notification.TypeLeaveRouted, msgs[0].Type)
	})

	// --- Cycle 4: the scheduler finds nothing left to do ---
	t.Run("Cycle 4: Scheduler Is Idempotent", func(t *testing.T) {
		flushed := false
		sched := scheduler.NewService(config.SchedulerConfig{Enabled: true}, processor, rotationSvc, func() { flushed = true })
		sched.RunOnce(ctx)
		assert.False(t, flushed)

		var count int64
		require.NoError(t, gormDB.Model(&model.Assignment{}).Count(&count).Error)
		assert.Equal(t, int64(4), count)
	})

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `dorm_allocation_runs_total{kind="allocate",outcome="committed"} 2`)
}
