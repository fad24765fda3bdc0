package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/rotation"
	"dorm-allocation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	processor *allocation.Processor
	rotation  *rotation.Service
	cache     *mw.ResponseCache
	webpush   *webpush.Options
	now       func() time.Time
}

// NewHandler creates a new API handler. cache and webpushOptions may be nil.
func NewHandler(s store.Store, p *allocation.Processor, r *rotation.Service, cache *mw.ResponseCache, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		processor: p,
		rotation:  r,
		cache:     cache,
		webpush:   webpushOptions,
		now:       time.Now,
	}
}

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// failErr maps domain sentinels to status codes. Anything unrecognised is a 500.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrStatusConflict),
		errors.Is(err, rotation.ErrLeaveOverlap):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, rotation.ErrInvalidLeaveType), errors.Is(err, rotation.ErrInvalidLeaveDates),
		errors.Is(err, rotation.ErrLeaveTooLong):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) flushCache() {
	if h.cache != nil {
		h.cache.Flush()
	}
}
