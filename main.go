package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"trading-psychology-engine/config"
	"trading-psychology-engine/internal/analyzer"
	"trading-psychology-engine/internal/api"
	"trading-psychology-engine/internal/cache"
	"trading-psychology-engine/internal/database"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/logging"
	"trading-psychology-engine/internal/ml"
	"trading-psychology-engine/internal/nlp"
	"trading-psychology-engine/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize structured logging
	root := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
		Output: cfg.LoggingConfig.Output,
	})
	logger := logging.WithComponent(root, "main")
	logger.Info().Msg("structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info().Msg("event bus initialized")

	// Optional external model service. The nlp engine runs on the lexicon
	// alone when disabled.
	var classifier nlp.Classifier
	var sentimentModel nlp.SentimentModel
	if cfg.MLConfig.Enabled {
		client := ml.NewClient(cfg.MLConfig.BaseURL, cfg.MLConfig.MaxInFlight, cfg.MLConfig.Timeout, root)
		classifier = client
		sentimentModel = client
		logger.Info().Str("base_url", cfg.MLConfig.BaseURL).Msg("ml model service enabled")
	}

	// Initialize the nlp engine. A malformed lexicon is fatal.
	engine, err := nlp.NewEngine(root, classifier, sentimentModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize nlp engine")
	}
	logger.Info().Msg("nlp engine initialized")

	// Initialize database (optional)
	var db *database.DB
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, root)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	} else {
		logger.Info().Msg("database disabled, running without persistence")
	}

	// Initialize Redis-backed session tracking (optional; memory-only
	// otherwise)
	var rdb *redis.Client
	if cfg.RedisConfig.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, sessions will not survive restarts")
			rdb = nil
		}
		cancel()
	}
	tracker := session.NewTracker(rdb, cfg.RedisConfig.SessionTTL, root)

	var cacheSvc *cache.CacheService
	if rdb != nil {
		cacheSvc = cache.NewCacheService(rdb, root)
	}

	// Initialize analyzers
	active := analyzer.NewActive(engine, eventBus, root)
	passive := analyzer.NewPassive(eventBus, root)

	// Initialize web server
	server := api.NewServer(
		api.ServerConfig{
			Port:           cfg.ServerConfig.Port,
			Host:           cfg.ServerConfig.Host,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
			RateLimit:      cfg.ServerConfig.RateLimit,
		},
		engine, active, passive, tracker, db, cacheSvc, eventBus, root,
	)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start web server")
		}
	}()
	logger.Info().
		Str("host", cfg.ServerConfig.Host).
		Int("port", cfg.ServerConfig.Port).
		Msg("behavioral risk engine started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down web server")
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info().Msg("shutdown complete")
}
