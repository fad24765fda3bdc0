package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/parse"
	"dorm-allocation-backend/internal/priority"
)

// bindFilters reads block and gender from the query string or a JSON body.
func bindFilters(c *gin.Context) (allocation.Filters, bool) {
	var f allocation.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return f, false
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&f); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return f, false
		}
	}

	gender, err := parse.NormalizeGender(string(f.Gender))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return f, false
	}
	f.Gender = gender
	if actor := mw.Actor(c); actor != nil {
		f.ActorID = actor.ID
	}
	return f, true
}

func (h *Handler) runBatch(c *gin.Context, run func(*gin.Context, allocation.Filters) (*allocation.BatchResult, error)) {
	f, valid := bindFilters(c)
	if !valid {
		return
	}
	result, err := run(c, f)
	if err != nil {
		failErr(c, err)
		return
	}
	if result.AllocatedCount > 0 {
		h.flushCache()
	}
	ok(c, http.StatusOK, "Processed "+strconv.Itoa(result.TotalCandidates)+" candidates", result)
}

// AutoAllocate handles POST /api/allocations/auto.
func (h *Handler) AutoAllocate(c *gin.Context) {
	h.runBatch(c, func(c *gin.Context, f allocation.Filters) (*allocation.BatchResult, error) {
		return h.processor.AutoAllocate(c.Request.Context(), f)
	})
}

// Reallocate handles POST /api/allocations/reallocate. Only the block filter applies.
func (h *Handler) Reallocate(c *gin.Context) {
	h.runBatch(c, func(c *gin.Context, f allocation.Filters) (*allocation.BatchResult, error) {
		return h.processor.Reallocate(c.Request.Context(), f)
	})
}

// GetStats handles GET /api/allocations/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.processor.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Allocation statistics", stats)
}

// SubmitApplication handles POST /api/applications/:id/submit. Students may
// only submit their own application.
func (h *Handler) SubmitApplication(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid application id")
		return
	}
	ctx := c.Request.Context()

	if actor := mw.Actor(c); actor != nil && actor.Role == model.RoleStudent {
		app, err := h.store.GetApplication(ctx, id)
		if err != nil {
			failErr(c, err)
			return
		}
		if app.UserID != actor.ID {
			fail(c, http.StatusForbidden, "application belongs to another user")
			return
		}
	}

	app, err := priority.Submit(ctx, h.store, id, h.now())
	if err != nil {
		failErr(c, err)
		return
	}
	h.flushCache()
	ok(c, http.StatusOK, "Application submitted", app)
}
