package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claramesh/internal/config"
	"claramesh/internal/database"
	"claramesh/internal/jobs"
	"claramesh/internal/logging"
	"claramesh/internal/models"
	"claramesh/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting ClaraMesh coordinator...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (env: %s, knowledge ttl: %s, rotation: %s, context ttl: %s)",
		cfg.Environment, cfg.KnowledgeTTL, cfg.RotationInterval, cfg.EntityContextTTL)

	tuning := models.DefaultTuning()
	if cfg.TuningFile != "" {
		loaded, err := config.LoadTuning(cfg.TuningFile)
		if err != nil {
			log.Fatalf("❌ Failed to load tuning file: %v", err)
		}
		tuning = loaded
		log.Printf("✅ Tuning loaded from %s", cfg.TuningFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deps services.CoordinatorDeps

	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		rs, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, falling back to in-memory stores: %v", err)
		} else {
			redisService = rs
			deps.Redis = rs
		}
	}

	var mongoDB *database.MongoDB
	if cfg.MongoURI != "" {
		db, err := database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			log.Printf("⚠️  MongoDB unavailable, memory store is process-local: %v", err)
		} else {
			if err := db.Initialize(ctx); err != nil {
				log.Printf("⚠️  Failed to initialize MongoDB indexes: %v", err)
			}
			mongoDB = db
			deps.Mongo = db
		}
	}

	coordinator := services.NewCoordinator(cfg, tuning, deps)
	if err := coordinator.Start(); err != nil {
		log.Printf("⚠️  Cross-instance context sync disabled: %v", err)
	}

	if cfg.TuningFile != "" {
		go func() {
			if err := config.WatchTuning(ctx, cfg.TuningFile, coordinator.ApplyTuning); err != nil {
				log.Printf("⚠️  Tuning hot-reload disabled: %v", err)
			}
		}()
	}

	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}

	var locker jobs.Locker
	if redisService != nil {
		locker = redisService
	}
	if err := jobScheduler.Register("knowledge_sweep", cfg.SweepCron, jobs.NewKnowledgeSweepJob(coordinator, locker)); err != nil {
		log.Fatalf("❌ Failed to register knowledge sweep: %v", err)
	}
	if err := jobScheduler.Register("health_probe", cfg.HealthProbeCron, jobs.NewHealthProbeJob(coordinator.Health)); err != nil {
		log.Fatalf("❌ Failed to register health probe: %v", err)
	}
	jobScheduler.Start()

	for name, status := range jobScheduler.GetStatus() {
		log.Printf("⏰ Job %s (%s) next run at %s", name, status.Cron, status.NextRunTime.Format(time.RFC3339))
	}
	log.Println("✅ Coordinator running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down coordinator...")
	cancel()

	if err := jobScheduler.Stop(); err != nil {
		log.Printf("⚠️ Error stopping job scheduler: %v", err)
	}
	coordinator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if mongoDB != nil {
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Printf("⚠️ Error closing MongoDB: %v", err)
		}
	}
	if redisService != nil {
		if err := redisService.Close(); err != nil {
			log.Printf("⚠️ Error closing Redis: %v", err)
		}
	}

	log.Println("👋 Coordinator stopped")
}
