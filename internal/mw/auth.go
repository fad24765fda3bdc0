package mw

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

const (
	// UserIDHeader carries the authenticated user's ID from the gateway.
	UserIDHeader = "X-User-ID"
	actorKey     = "actor"
)

// UserLookup resolves the caller.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

func deny(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// RequireRole admits active users whose role is one of roles. An empty role
// list admits any active user.
func RequireRole(users UserLookup, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
		if err != nil || id <= 0 {
			deny(c, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := users.GetUser(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			deny(c, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			deny(c, http.StatusInternalServerError, "failed to resolve user")
			return
		}
		if user.Status != model.UserActive {
			deny(c, http.StatusForbidden, "account is not active")
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, user.Role) {
			deny(c, http.StatusForbidden, "insufficient permissions")
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// Actor returns the user admitted by RequireRole.
func Actor(c *gin.Context) *model.User {
	if v, ok := c.Get(actorKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
