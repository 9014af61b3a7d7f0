package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codemaster/backend/internal/api"
	"github.com/codemaster/backend/internal/config"
	"github.com/codemaster/backend/internal/database"
	"github.com/codemaster/backend/internal/events"
	"github.com/codemaster/backend/internal/game"
	"github.com/codemaster/backend/internal/migrations"
	"github.com/codemaster/backend/internal/record"
	"github.com/codemaster/backend/internal/redis"
	"github.com/codemaster/backend/internal/server"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Pick the match record backend
	var recorder record.Recorder
	switch cfg.ResultsBackend {
	case "postgres":
		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.Run(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		recorder = record.NewPostgresRecorder(db)
		log.Printf("[RECORD] Using postgres backend")
	default:
		xmlRec, err := record.NewXMLRecorder(cfg.ResultsDir)
		if err != nil {
			log.Fatalf("Failed to initialize results dir: %v", err)
		}
		recorder = xmlRec
		log.Printf("[RECORD] Using xml backend (dir=%s)", cfg.ResultsDir)
	}

	// Optional Redis event publishing
	var publisher *events.Publisher
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		publisher = events.NewPublisher(rdb)
		log.Printf("[EVENTS] Publishing match events to Redis channel %q", events.Channel)
	} else {
		log.Printf("[EVENTS] Redis not configured, match events disabled")
	}

	coord := game.NewCoordinator(game.Config{
		CodeLength:      cfg.CodeLength,
		AllowedAttempts: cfg.AllowedAttempts,
		MinPlayers:      cfg.MinPlayers,
		MaxPlayers:      cfg.MaxPlayers,
		Alphabet:        cfg.Alphabet,
	}, recorder, publisher)

	// Admin API
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, coord, recorder)
	go func() {
		log.Printf("[API] Admin API listening on port %s", cfg.AdminPort)
		if err := router.Run(":" + cfg.AdminPort); err != nil {
			log.Fatalf("Admin API failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(
		cfg.Host+":"+cfg.Port,
		coord,
		cfg.SendQueueSize,
		time.Duration(cfg.WriteTimeoutSecs)*time.Second,
	)

	log.Printf("Starting Code-Master server on %s:%s", cfg.Host, cfg.Port)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("Server stopped")
}
