package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/rotation"
)

// GetSchedule handles GET /api/blocks/:block/schedule.
func (h *Handler) GetSchedule(c *gin.Context) {
	block := c.Param("block")
	schedule, err := h.rotation.BlockSchedule(c.Request.Context(), block)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Supervisor schedule for block "+block, schedule)
}

// GetWorkload handles GET /api/blocks/:block/workload.
func (h *Handler) GetWorkload(c *gin.Context) {
	block := c.Param("block")
	loads, err := h.rotation.BlockWorkload(c.Request.Context(), block)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Supervisor workload for block "+block, loads)
}

// GetTodaysSupervisor handles GET /api/blocks/:block/supervisor/today.
func (h *Handler) GetTodaysSupervisor(c *gin.Context) {
	block := c.Param("block")
	supervisor, err := h.rotation.TodaysSupervisor(c.Request.Context(), block)
	if err != nil {
		failErr(c, err)
		return
	}
	if supervisor == nil {
		fail(c, http.StatusNotFound, "no active supervisor for block "+block)
		return
	}
	ok(c, http.StatusOK, "Supervisor on duty", supervisor)
}

// SubmitLeave handles POST /api/leave-requests for the calling resident.
func (h *Handler) SubmitLeave(c *gin.Context) {
	var in rotation.LeaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	in.UserID = mw.Actor(c).ID

	lr, err := h.rotation.SubmitLeave(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	h.flushCache()

	message := "Leave request submitted"
	if lr.SupervisorID == nil {
		message += "; no supervisor is available to review it yet"
	}
	ok(c, http.StatusCreated, message, lr)
}
