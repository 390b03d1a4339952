package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config is the full service configuration, read from the environment with
// an optional .env file.
type Config struct {
	Port          string
	MaxUploadSize int64

	// Inference backend. Empty DetectURL means every detection is served by
	// the synthetic fallback.
	DetectURL     string
	DetectTimeout time.Duration

	// Camera still-capture endpoint for snapshot and monitoring modes.
	CameraSnapshotURL string
	CameraTimeout     time.Duration

	// Default monitoring interval offered to the UI.
	MonitorInterval int

	// Optional directory for archiving raw monitoring frames. Empty
	// disables archiving.
	SnapshotDir string

	// Seed for the synthetic fallback detector; 0 means seed from time.
	SyntheticSeed int64
}

const defaultMaxUploadSize = 16 << 20 // default upload cap, 16MB

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info("loaded configuration from .env")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DetectURL:         os.Getenv("DETECT_URL"),
		CameraSnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
		SnapshotDir:       os.Getenv("SNAPSHOT_DIR"),
	}

	var err error
	cfg.MaxUploadSize, err = getEnvInt64("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return nil, err
	}

	detectTimeout, err := getEnvInt("DETECT_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	cfg.DetectTimeout = time.Duration(detectTimeout) * time.Second

	cameraTimeout, err := getEnvInt("CAMERA_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	cfg.CameraTimeout = time.Duration(cameraTimeout) * time.Second

	cfg.MonitorInterval, err = getEnvInt("MONITOR_INTERVAL", 30)
	if err != nil {
		return nil, err
	}
	if cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("MONITOR_INTERVAL must be positive, got %d", cfg.MonitorInterval)
	}

	cfg.SyntheticSeed, err = getEnvInt64("SYNTHETIC_SEED", 0)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
