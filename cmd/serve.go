package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/geo"
	"entrepreneur-connect-backend/internal/handlers"
	"entrepreneur-connect-backend/internal/push"
	"entrepreneur-connect-backend/internal/realtime"
	"entrepreneur-connect-backend/internal/repository"
	"entrepreneur-connect-backend/internal/services"
	"entrepreneur-connect-backend/internal/storage"
	"entrepreneur-connect-backend/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the WebSocket hub and the metrics endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		serve(loadConfig())
	},
}

func serve(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db := connectDatabase(ctx, cfg)
	defer db.Close()

	// Realtime broker: Redis when configured so several instances share events
	var broker realtime.Broker = realtime.NewLocalBroker()
	var dispatcher push.Dispatcher = push.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		broker = realtime.NewRedisBroker(rdb)

		enqueuer := worker.NewEnqueuer(worker.RedisOpt(cfg.Redis))
		defer enqueuer.Close()
		dispatcher = enqueuer
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis broker and push queue enabled")
	} else if cfg.Push.KeyFile != "" {
		sender, err := push.NewAPNsSender(cfg.Push)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		dispatcher = sender
		log.Info().Msg("Inline APNs delivery enabled")
	}

	objects, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage client")
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Initialize services
	loc := cfg.Server.Location()
	notificationService := services.NewNotificationService(notificationRepo, connectionRepo, messageRepo, profileRepo, broker, dispatcher)
	profileService := services.NewProfileService(profileRepo, connectionRepo, geo.NewResolver(cfg.Geocoding))
	sessionService := services.NewSessionService(cfg.Auth, profileService)
	relationshipService := services.NewRelationshipService(connectionRepo, profileRepo, notificationService, broker)
	discoveryService := services.NewDiscoveryService(profileRepo, connectionRepo)
	messagingService := services.NewMessagingService(messageRepo, profileRepo, notificationService, broker)
	eventService := services.NewEventService(eventRepo, profileRepo, broker, loc)
	mediaService := services.NewMediaService(objects, profileRepo, eventRepo, cfg.Storage.PresignTTL)
	dashboardService := services.NewDashboardService(profileRepo, connectionRepo, messageRepo, eventRepo, notificationRepo, loc)

	hub := realtime.NewHub()
	go func() {
		if err := hub.Run(ctx, broker); err != nil {
			log.Error().Err(err).Msg("Realtime hub stopped")
		}
	}()

	// Setup router
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           sessionService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Database:       db,
		Profiles:       handlers.NewProfileHandler(profileService, notificationService, dashboardService),
		Discovery:      handlers.NewDiscoveryHandler(discoveryService),
		Connections:    handlers.NewConnectionHandler(relationshipService),
		Messages:       handlers.NewMessageHandler(messagingService),
		Events:         handlers.NewEventHandler(eventService),
		Notifications:  handlers.NewNotificationHandler(notificationService),
		Uploads:        handlers.NewUploadHandler(mediaService),
		WebSocket:      handlers.NewWebSocketHandler(hub, sessionService, notificationService, cfg.Server.AllowedOrigins),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming the broker and close WebSocket connections
	cancel()
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
