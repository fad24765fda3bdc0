package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/mw"
)

const maxInboxPage = 100

// ListNotifications handles GET /api/notifications?unread=true&limit=20.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit := maxInboxPage
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxInboxPage)
	}
	unread, _ := strconv.ParseBool(c.Query("unread"))

	notifications, err := h.store.ListNotifications(c.Request.Context(), mw.Actor(c).ID, unread, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Notifications", notifications)
}
