// main.go
package main

import (
	"log"
	"time"

	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/feed"
	"showtime-booking/internal/usecase"
	"showtime-booking/internal/wire"
	"showtime-booking/pkg/database"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"

	"showtime-booking/cmd"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("feed", config.Feed.BaseURL),
	)

	// Select the preference store backend
	prefs, cleanup, err := buildPreferenceStore(config, logger)
	if err != nil {
		logger.Fatal("Failed to init preference store", zap.Error(err))
	}
	defer cleanup()

	repos := repository.NewRepository(prefs)

	// Showtime feed client
	fetcher := feed.NewClient(
		config.Feed.BaseURL,
		time.Duration(config.Feed.TimeoutSeconds)*time.Second,
		config.Feed.RetryAttempts,
		logger,
	)

	// Wire all dependencies
	service, err := usecase.NewService(fetcher, repos, config, logger)
	if err != nil {
		logger.Fatal("Failed to init services", zap.Error(err))
	}

	app := wire.Wiring(service, logger)

	// Sweep abandoned booking sessions in the background
	sessionTTL := time.Duration(config.Booking.SessionTTLMinutes) * time.Minute
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			service.Booking.PurgeExpired(sessionTTL)
		}
	}()

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}

func buildPreferenceStore(config *utils.Config, logger *zap.Logger) (repository.PreferenceRepository, func(), error) {
	switch config.Store.Backend {
	case "postgres":
		db, err := database.InitDB(config.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Preference store connected", zap.String("backend", "postgres"))
		return repository.NewPreferenceRepository(db, logger), db.Close, nil

	case "redis":
		client, err := database.InitRedis(config.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Preference store connected", zap.String("backend", "redis"))
		return repository.NewRedisPreferenceRepository(client, logger), func() { client.Close() }, nil

	default:
		// City preferences won't survive a restart with the in-memory store
		logger.Warn("Using in-memory preference store", zap.String("backend", config.Store.Backend))
		return repository.NewMemoryPreferenceRepository(), func() {}, nil
	}
}
