package main

import (
	"context"
	"log"
	"time"

	"newcam-dvr/api"
	"newcam-dvr/config"
	"newcam-dvr/cron"
	"newcam-dvr/database"
	"newcam-dvr/monitoring"
	"newcam-dvr/service"
	"newcam-dvr/storage"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.LoadConfig()
	config.EnsurePaths(cfg)

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer db.Close()

	config.SeedCameras(db)

	var store storage.ObjectStore
	if cfg.S3Enabled {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			BaseURL:   cfg.S3BaseURL,
		})
		if err != nil {
			log.Fatalf("Error initializing object storage: %v", err)
		}
		store = s3Storage
		log.Printf("Object storage enabled, bucket %s", cfg.S3Bucket)
	} else {
		log.Println("Object storage disabled, recordings stay local only")
	}

	registrar := service.NewRegistrar(db, cfg)
	reconciler := service.NewReconciler(db, cfg)

	var uploadService *service.UploadService
	if store != nil {
		uploadService = service.NewUploadService(db, store, cfg)
		uploadService.Start(context.Background())
		cron.StartStuckUploadCron(uploadService)
	}

	cron.StartReconcileCron(cfg, reconciler)

	monitor, err := monitoring.NewSystemMonitor(cfg.RecordingsRoot)
	if err != nil {
		log.Printf("Warning: system monitoring unavailable: %v", err)
	} else {
		monitor.StartLogging(5 * time.Minute)
	}

	server := api.NewServer(cfg, db, store, registrar, uploadService, reconciler, monitor)
	server.Start()
}
