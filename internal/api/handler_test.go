package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/db/dbtest"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/rotation"
	"dorm-allocation-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	fixture *dbtest.Fixture
	router  *gin.Engine
	admin   model.User
}

func newTestServer(t *testing.T) *testServer {
	gormDB := dbtest.New(t)
	s := store.NewGormStore(gormDB)
	cfg := config.Default()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	h := NewHandler(s,
		allocation.NewProcessor(s, nil, nil, cfg.Allocation),
		rotation.NewService(s, nil, cfg.Rotation),
		nil, nil)
	f := dbtest.NewFixture(t, gormDB)
	return &testServer{
		t:       t,
		db:      gormDB,
		fixture: f,
		router:  NewRouter(cfg, h, nil),
		admin:   f.Admin("Registrar"),
	}
}

// do sends body as JSON when it is not nil, authenticated as user when set.
func (ts *testServer) do(method, path string, user *model.User, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(mw.UserIDHeader, strconv.FormatInt(user.ID, 10))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestAutoAllocate_Endpoint(t *testing.T) {
	ts := newTestServer(t)
	block := ts.fixture.Block("A", model.GenderMale)
	ts.fixture.Room(block, "A101", 4, model.RoomTypeFour)
	student := ts.fixture.Student("Abebe", model.GenderMale)
	ts.fixture.Application(student, "A", 80, time.Now())

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/allocations/auto", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, "/api/allocations/auto", &student, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/allocations/auto?gender=robot", &ts.admin, nil).Code)

	w := ts.do(http.MethodPost, "/api/allocations/auto", &ts.admin, map[string]string{"block": "A", "gender": "M"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result allocation.BatchResult
	env := decode(t, w, &result)
	assert.True(t, env.Success)
	assert.Equal(t, 1, result.AllocatedCount)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, "A101", result.Allocations[0].RoomNumber)

	var assignment model.Assignment
	require.NoError(t, ts.db.Where("user_id = ?", student.ID).First(&assignment).Error)
	assert.Equal(t, ts.admin.ID, assignment.AssignedBy)
}

func TestStats_CachedUntilAllocation(t *testing.T) {
	ts := newTestServer(t)
	block := ts.fixture.Block("A", model.GenderMale)
	ts.fixture.Room(block, "A101", 4, model.RoomTypeFour)
	student := ts.fixture.Student("Abebe", model.GenderMale)
	ts.fixture.Application(student, "A", 80, time.Now())

	var stats store.Stats
	decode(t, ts.do(http.MethodGet, "/api/allocations/stats", &ts.admin, nil), &stats)
	assert.Equal(t, int64(1), stats.ApprovedApplications)
	assert.Equal(t, 0.0, stats.OccupancyRate)

	w := ts.do(http.MethodGet, "/api/allocations/stats", &ts.admin, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/allocations/auto", &ts.admin, nil).Code)

	decode(t, ts.do(http.MethodGet, "/api/allocations/stats", &ts.admin, nil), &stats)
	assert.Equal(t, int64(1), stats.CompletedApplications)
	assert.Equal(t, int64(1), stats.ActiveAllocations)
	assert.Equal(t, 25.0, stats.OccupancyRate)
}

func TestReallocate_Endpoint(t *testing.T) {
	ts := newTestServer(t)
	blockA := ts.fixture.Block("A", model.GenderMale)
	blockB := ts.fixture.Block("B", model.GenderMale)
	from := ts.fixture.Room(blockA, "A101", 4, model.RoomTypeFour)
	ts.fixture.Room(blockB, "B101", 4, model.RoomTypeFour)
	student := ts.fixture.Student("Abebe", model.GenderMale)
	ts.fixture.Assignment(student, &from)
	ts.fixture.ChangeRequest(student, &from, nil, "B", time.Now())

	w := ts.do(http.MethodPost, "/api/allocations/reallocate?block=B", &ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result allocation.BatchResult
	decode(t, w, &result)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, "B101", result.Allocations[0].RoomNumber)
	assert.Equal(t, "A101", result.Allocations[0].PreviousRoomNumber)
}

func TestSubmitApplication_Endpoint(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.fixture.Student("Abebe", model.GenderMale)
	other := ts.fixture.Student("Bekele", model.GenderMale)
	app := ts.fixture.Application(owner, "A", 0, time.Now())
	require.NoError(t, ts.db.Model(&app).Update("status", model.ApplicationDraft).Error)
	path := "/api/applications/" + strconv.FormatInt(app.ID, 10) + "/submit"

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, path, &other, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/applications/999/submit", &ts.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/applications/x/submit", &ts.admin, nil).Code)

	w := ts.do(http.MethodPost, path, &owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitted model.Application
	decode(t, w, &submitted)
	assert.Equal(t, model.ApplicationPending, submitted.Status)
	assert.Equal(t, 100, submitted.PriorityScore)

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, path, &owner, nil).Code)
}

func TestSubmitLeave_Endpoint(t *testing.T) {
	ts := newTestServer(t)
	supervisor := ts.fixture.Supervisor("S1", "A")
	student := ts.fixture.Student("Abebe", model.GenderMale)
	start := time.Now().AddDate(0, 0, 2).UTC()

	leave := func(leaveType string, end time.Time) map[string]any {
		return map[string]any{
			"leave_type":  leaveType,
			"start_date":  start,
			"end_date":    end,
			"destination": "Adama",
		}
	}

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, "/api/leave-requests", &ts.admin, leave("weekend", start)).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/leave-requests", &student, map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/leave-requests", &student, leave("vacation", start)).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/leave-requests", &student, leave("holiday", start.AddDate(0, 0, 40))).Code)

	w := ts.do(http.MethodPost, "/api/leave-requests", &student, leave("weekend", start.AddDate(0, 0, 1)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var lr model.LeaveRequest
	decode(t, w, &lr)
	require.NotNil(t, lr.SupervisorID)
	assert.Equal(t, supervisor.ID, *lr.SupervisorID)
	assert.Equal(t, student.ID, lr.UserID)

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/leave-requests", &student, leave("weekend", start)).Code)
}

func TestBlockRotation_Endpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.fixture.Supervisor("S1", "A")
	ts.fixture.Supervisor("S2", "A")
	student := ts.fixture.Student("Abebe", model.GenderMale)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/blocks/A/schedule", &student, nil).Code)

	var schedule []rotation.ScheduleEntry
	decode(t, ts.do(http.MethodGet, "/api/blocks/A/schedule", &ts.admin, nil), &schedule)
	require.Len(t, schedule, 7)
	today := 0
	for _, entry := range schedule {
		assert.NotZero(t, entry.SupervisorID)
		if entry.Today {
			today++
		}
	}
	assert.Equal(t, 1, today)

	var loads []rotation.SupervisorLoad
	decode(t, ts.do(http.MethodGet, "/api/blocks/A/workload", &ts.admin, nil), &loads)
	assert.Len(t, loads, 2)

	var onDuty model.User
	decode(t, ts.do(http.MethodGet, "/api/blocks/A/supervisor/today", &student, nil), &onDuty)
	assert.Equal(t, model.RoleSupervisor, onDuty.Role)

	w := ts.do(http.MethodGet, "/api/blocks/Z/supervisor/today", &student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode(t, w, nil).Success)
}

func TestListNotifications(t *testing.T) {
	ts := newTestServer(t)
	student := ts.fixture.Student("Abebe", model.GenderMale)
	other := ts.fixture.Student("Bekele", model.GenderMale)
	for i, u := range []model.User{student, student, other} {
		require.NoError(t, ts.db.Create(&model.Notification{
			UserID:    u.ID,
			Type:      "room_allocated",
			Title:     "Room Allocated",
			Message:   "message " + strconv.Itoa(i),
			IsRead:    i == 0,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	var inbox []model.Notification
	decode(t, ts.do(http.MethodGet, "/api/notifications", &student, nil), &inbox)
	require.Len(t, inbox, 2)
	assert.Equal(t, "message 1", inbox[0].Message)

	decode(t, ts.do(http.MethodGet, "/api/notifications?unread=true", &student, nil), &inbox)
	assert.Len(t, inbox, 1)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/notifications?limit=-1", &student, nil).Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/vapid_public_key", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"vapid keys are not configured"}`, w.Body.String())
}
