package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"biketrail/internal/handler"
	"biketrail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SessionHandler     *handler.SessionHandler
	HistoryHandler     *handler.HistoryHandler
	AchievementHandler *handler.AchievementHandler
	ProfileHandler     *handler.ProfileHandler
	RedisClient        *redis.Client // Optional; enables idempotent retries
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.Use(middleware.RiderMiddleware())
	v1.Use(middleware.RiderAttributeMiddleware())
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		// Live ride session.
		session := v1.Group("/rides/session")
		{
			session.GET("", deps.SessionHandler.Get)
			session.POST("/start", deps.SessionHandler.Start)
			session.POST("/pause", deps.SessionHandler.Pause)
			session.POST("/resume", deps.SessionHandler.Resume)
			session.POST("/stop", deps.SessionHandler.Stop)
			session.POST("/save", deps.SessionHandler.Save)
			session.POST("/discard", deps.SessionHandler.Discard)
			session.POST("/fixes", deps.SessionHandler.PushFix)
			session.GET("/stream", deps.SessionHandler.Stream)
		}

		// Ride history.
		rides := v1.Group("/rides")
		{
			rides.GET("", deps.HistoryHandler.List)
			rides.GET("/totals", deps.HistoryHandler.Totals)
			rides.GET("/:id", deps.HistoryHandler.Get)
			rides.GET("/:id/share", deps.HistoryHandler.Share)
		}

		v1.GET("/riders/nearby", deps.SessionHandler.Nearby)
		v1.GET("/achievements", deps.AchievementHandler.List)

		profile := v1.Group("/profile")
		{
			profile.GET("", deps.ProfileHandler.Get)
			profile.PUT("", deps.ProfileHandler.Update)
		}
	}

	return router
}
