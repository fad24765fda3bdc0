package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. gatherer may be nil when
// metrics are disabled.
func NewRouter(cfg *config.Config, h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, mw.UserIDHeader)
	r.Use(cors.New(corsCfg))

	if cfg.Metrics.Enabled && gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	if h.cache == nil {
		h.cache = mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	}
	caching := h.cache.Middleware()

	anyUser := mw.RequireRole(h.store)
	student := mw.RequireRole(h.store, model.RoleStudent)
	staff := mw.RequireRole(h.store, model.RoleAdmin, model.RoleSupervisor)
	admin := mw.RequireRole(h.store, model.RoleAdmin)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/allocations/auto", admin, h.AutoAllocate)
		api.POST("/allocations/reallocate", admin, h.Reallocate)
		api.GET("/allocations/stats", admin, caching, h.GetStats)

		api.GET("/blocks/:block/schedule", staff, caching, h.GetSchedule)
		api.GET("/blocks/:block/workload", staff, caching, h.GetWorkload)
		api.GET("/blocks/:block/supervisor/today", anyUser, h.GetTodaysSupervisor)

		api.POST("/applications/:id/submit", anyUser, h.SubmitApplication)
		api.POST("/leave-requests", student, h.SubmitLeave)

		api.GET("/notifications", anyUser, h.ListNotifications)
		api.GET("/subscriptions", anyUser, h.GetSubscription)
		api.PUT("/subscriptions", anyUser, h.PutSubscription)
		api.DELETE("/subscriptions", anyUser, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
