package mw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/stats", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "call %d", calls)
	})
	r.GET("/broken", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.Status(http.StatusInternalServerError)
	})

	first := get(r, "/stats", nil)
	second := get(r, "/stats", nil)
	assert.Equal(t, "call 1", first.Body.String())
	assert.Equal(t, "call 1", second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	rc.Flush()
	assert.Equal(t, "call 2", get(r, "/stats", nil).Body.String())

	get(r, "/broken", nil)
	get(r, "/broken", nil)
	assert.Equal(t, 4, calls, "error responses are not cached")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimiter(rate.Limit(1), 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	w := get(r, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"too many requests"}`, w.Body.String())
}

func TestIPRateLimiter_PerAddress(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))
}

type userMap map[int64]model.User

func (m userMap) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	u, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return &u, nil
}

func TestRequireRole(t *testing.T) {
	users := userMap{
		1: {ID: 1, Role: model.RoleAdmin, Status: model.UserActive},
		2: {ID: 2, Role: model.RoleStudent, Status: model.UserActive},
		3: {ID: 3, Role: model.RoleAdmin, Status: model.UserSuspended},
	}
	r := gin.New()
	r.GET("/admin", RequireRole(users, model.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", Actor(c).ID)
	})
	r.GET("/any", RequireRole(users), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", Actor(c).ID)
	})

	testCases := []struct {
		name           string
		path           string
		userID         string
		expectedStatus int
	}{
		{"Missing header", "/admin", "", http.StatusUnauthorized},
		{"Malformed header", "/admin", "abc", http.StatusUnauthorized},
		{"Unknown user", "/admin", "42", http.StatusUnauthorized},
		{"Lookup failure", "/admin", "500", http.StatusInternalServerError},
		{"Wrong role", "/admin", "2", http.StatusForbidden},
		{"Suspended", "/admin", "3", http.StatusForbidden},
		{"Admin", "/admin", "1", http.StatusOK},
		{"Any role", "/any", "2", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.path, map[string]string{UserIDHeader: tc.userID})
			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedStatus == http.StatusOK {
				assert.Equal(t, tc.userID, w.Body.String())
			}
		})
	}
}
