package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription handles the creation or replacement of the caller's subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		UserID:    mw.Actor(c).ID,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: h.now(),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription); err != nil {
		failErr(c, err)
		return
	}

	ok(c, http.StatusCreated, "Subscription saved", nil)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	if _, found := h.ownSubscription(c, req.Endpoint); !found {
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true // endpoints are matched undecoded
		}
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, found := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !found || raw == "" {
		fail(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	sub, found := h.ownSubscription(c, raw)
	if !found {
		return
	}
	ok(c, http.StatusOK, "Subscription found", gin.H{
		"endpoint":   sub.Endpoint,
		"created_at": sub.CreatedAt.Format(time.RFC3339),
	})
}

// ownSubscription loads the subscription and hides other users' as not found.
func (h *Handler) ownSubscription(c *gin.Context, endpoint string) (*model.PushSubscription, bool) {
	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sub.UserID != mw.Actor(c).ID) {
		fail(c, http.StatusNotFound, "subscription not found")
		return nil, false
	}
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return sub, true
}
