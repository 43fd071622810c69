package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"parking-escrow-backend/config"
	"parking-escrow-backend/internal/engine"
	"parking-escrow-backend/internal/mw"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, eng *engine.Engine, db *gorm.DB, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(eng, db, webpushOptions)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/spots", handler.ListSpots)
		api.GET("/spots/:spot_id", caching, handler.GetSpot)
		api.GET("/spots/:spot_id/history", handler.GetHistory)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		authed := api.Group("", mw.Auth([]byte(cfg.Auth.Secret)))
		{
			authed.POST("/spots/:spot_id/checkin", handler.CheckIn)
			authed.POST("/spots/:spot_id/occupied", handler.ReportOccupied)
			authed.POST("/spots/:spot_id/free", handler.ReportFree)
			authed.POST("/spots/:spot_id/cancel", handler.CancelCheckIn)

			admin := authed.Group("/admin")
			{
				admin.POST("/spots/:spot_id/force-reset", handler.ForceReset)
				admin.POST("/spots/:spot_id/force-end", handler.ForceEnd)
				admin.POST("/withdraw", handler.Withdraw)
				admin.PUT("/config", handler.UpdateConfig)
				admin.POST("/pause", handler.Pause)
				admin.POST("/resume", handler.Resume)
				admin.GET("/state", handler.GetState)
			}
		}
	}

	return r
}
