package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"biketrail/internal/app"
	"biketrail/internal/config"
	"biketrail/internal/handler"
	internalRedis "biketrail/internal/redis"
	"biketrail/internal/repository/postgres"
	"biketrail/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// The stream hub's subscription outlives the startup timeout.
	hub := internalRedis.NewStreamHub(context.Background(), redisClient)
	defer hub.Close()

	server, trackingService := wireServer(db, redisClient, hub, nrApp, cfg)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	trackingService.Shutdown()
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	hub *internalRedis.StreamHub,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *service.TrackingService) {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	// Services.
	notificationService := service.NewNotificationService()
	achievementService := service.NewAchievementService(rideRepo, cacheStore, notificationService, cfg.Tracking.Location())
	trackingService := service.NewTrackingService(
		rideRepo,
		locationStore,
		lockStore,
		hub,
		notificationService,
		achievementService,
		service.TrackingOptions{LockTTL: cfg.Tracking.RideLockTTL},
	)
	historyService := service.NewHistoryService(rideRepo, cacheStore)
	profileService := service.NewProfileService(profileRepo)
	shareService := service.NewShareService()

	router := app.NewRouter(app.RouterDeps{
		SessionHandler:     handler.NewSessionHandler(trackingService, hub),
		HistoryHandler:     handler.NewHistoryHandler(historyService, shareService),
		AchievementHandler: handler.NewAchievementHandler(achievementService),
		ProfileHandler:     handler.NewProfileHandler(profileService),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	// The websocket upgrade clears these deadlines on the stream connection.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, trackingService
}
