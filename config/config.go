package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"newcam-dvr/database"
)

// Orphan file policies for the reconciler. The policy is always explicit
// configuration, never inferred.
const (
	OrphanPolicyRegister = "register" // Create a recording + queue item for the file
	OrphanPolicyDelete   = "delete"   // Remove files older than the grace period
	OrphanPolicyIgnore   = "ignore"   // Log and leave alone
)

// Config contains all configuration for the application
type Config struct {
	// Recording layout
	RecordingsRoot    string // Shared filesystem root the media server writes into
	ForeignRootPrefix string // Media server mount point to strip from webhook paths
	RecordingExt      string // File extension the reconciler sweeps for

	// Server Configuration
	ServerPort string
	BaseURL    string

	// Database Configuration
	DatabasePath string

	// Registration
	StatRetryAttempts int           // Bounded stat retries while the media server flushes
	StatRetryDelay    time.Duration

	// Upload pipeline
	MaxUploadAttempts       int
	UploadBackoffBase       time.Duration
	UploadBackoffCap        time.Duration
	StuckUploadTimeout      time.Duration
	UploadWorkerConcurrency int

	// Reconciler
	ReconcileInterval   time.Duration
	OrphanGracePeriod   time.Duration
	OrphanFilePolicy    string
	LocalRetentionHours int // Delete local copies this long after a successful upload; 0 disables

	// Object storage (S3-compatible)
	S3Enabled   bool
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3BaseURL   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		RecordingsRoot:    getEnv("RECORDINGS_ROOT", "./data/recordings"),
		ForeignRootPrefix: getEnv("FOREIGN_ROOT_PREFIX", ""),
		RecordingExt:      getEnv("RECORDING_EXT", ".mp4"),

		ServerPort: getEnv("SERVER_PORT", "3000"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:3000"),

		DatabasePath: getEnv("DATABASE_PATH", "./data/recordings.db"),

		StatRetryAttempts: getEnvInt("STAT_RETRY_ATTEMPTS", 3),
		StatRetryDelay:    getEnvDuration("STAT_RETRY_DELAY", 500*time.Millisecond),

		MaxUploadAttempts:       getEnvInt("MAX_UPLOAD_ATTEMPTS", 5),
		UploadBackoffBase:       getEnvDuration("UPLOAD_BACKOFF_BASE", 30*time.Second),
		UploadBackoffCap:        getEnvDuration("UPLOAD_BACKOFF_CAP", 30*time.Minute),
		StuckUploadTimeout:      getEnvDuration("STUCK_UPLOAD_TIMEOUT", 15*time.Minute),
		UploadWorkerConcurrency: getEnvInt("UPLOAD_WORKER_CONCURRENCY", 3),

		ReconcileInterval:   getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		OrphanGracePeriod:   getEnvDuration("ORPHAN_GRACE_PERIOD", 30*time.Minute),
		OrphanFilePolicy:    getEnv("ORPHAN_FILE_POLICY", OrphanPolicyRegister),
		LocalRetentionHours: getEnvInt("LOCAL_RETENTION_HOURS", 0),

		S3Enabled:   getEnv("S3_ENABLED", "false") == "true",
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3BaseURL:   getEnv("S3_BASE_URL", ""),
	}

	switch cfg.OrphanFilePolicy {
	case OrphanPolicyRegister, OrphanPolicyDelete, OrphanPolicyIgnore:
	default:
		log.Printf("Unknown ORPHAN_FILE_POLICY %q, falling back to %q", cfg.OrphanFilePolicy, OrphanPolicyIgnore)
		cfg.OrphanFilePolicy = OrphanPolicyIgnore
	}

	log.Printf("Recordings root: %s (foreign prefix: %q)", cfg.RecordingsRoot, cfg.ForeignRootPrefix)
	log.Printf("Server running on port %s with base URL %s", cfg.ServerPort, cfg.BaseURL)
	log.Printf("Upload workers: %d, max attempts: %d, backoff %s..%s",
		cfg.UploadWorkerConcurrency, cfg.MaxUploadAttempts, cfg.UploadBackoffBase, cfg.UploadBackoffCap)
	log.Printf("Reconcile every %s, orphan policy %q, grace period %s",
		cfg.ReconcileInterval, cfg.OrphanFilePolicy, cfg.OrphanGracePeriod)
	log.Printf("S3 storage enabled: %v", cfg.S3Enabled)

	return cfg
}

// SeedCameras loads cameras from the CAMERAS_CONFIG env JSON into the database
// on first run. Camera management itself belongs to an external system; this
// just keeps the stream-to-camera mapping available locally.
func SeedCameras(db database.Database) {
	cameras, err := db.ListCameras()
	if err != nil {
		log.Printf("ERROR loading cameras: %v", err)
		return
	}
	if len(cameras) > 0 {
		log.Printf("Loaded %d cameras from database", len(cameras))
		return
	}

	camerasJSON := getEnv("CAMERAS_CONFIG", "")
	if camerasJSON == "" {
		log.Println("No cameras configured; webhook notifications for unknown streams will be dropped")
		return
	}

	var envCams []database.Camera
	if err := json.Unmarshal([]byte(camerasJSON), &envCams); err != nil {
		log.Printf("Warning: Failed to parse CAMERAS_CONFIG: %v", err)
		return
	}
	if err := db.InsertCameras(envCams); err != nil {
		log.Printf("ERROR inserting cameras: %v", err)
		return
	}
	log.Printf("Inserted %d cameras from CAMERAS_CONFIG env", len(envCams))
}

// EnsurePaths creates necessary directories
func EnsurePaths(cfg Config) {
	dbDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Printf("Failed to create database directory %s: %v", dbDir, err)
	}
	if err := os.MkdirAll(cfg.RecordingsRoot, 0755); err != nil {
		log.Printf("Failed to create recordings root %s: %v", cfg.RecordingsRoot, err)
	}
}

// getEnv returns environment variable or fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid integer for %s: %q, using %d", key, value, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s: %q, using %s", key, value, fallback)
	}
	return fallback
}
