package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob backends understood by the storage layer.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabaseURL    string
	JWTSecret      string
	AppEnv         string
	LogLevel       string
	RequestTimeout time.Duration

	UploadDir      string // Content directory for the local blob backend
	MaxUploadBytes int64
	BlobBackend    string
	S3             S3Config

	CORSAllowedOrigins     []string
	ManuscriptsRequireAuth bool
	LoginRatePerMinute     int

	OrphanSweepSchedule string // cron spec, e.g. "@every 1h"
	OrphanGracePeriod   time.Duration
	DiskAlertPercent    float64
}

// S3Config describes an S3-compatible object store used when BlobBackend is "s3".
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUploadMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "50"), 10, 64)
	if err != nil || maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	gracePeriod, err := time.ParseDuration(getEnv("ORPHAN_GRACE_PERIOD", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_GRACE_PERIOD: %w", err)
	}

	diskAlert, err := strconv.ParseFloat(getEnv("DISK_ALERT_PERCENT", "90"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DISK_ALERT_PERCENT: %w", err)
	}

	loginRate, err := strconv.Atoi(getEnv("LOGIN_RATE_PER_MINUTE", "10"))
	if err != nil || loginRate <= 0 {
		return nil, fmt.Errorf("invalid LOGIN_RATE_PER_MINUTE %q", os.Getenv("LOGIN_RATE_PER_MINUTE"))
	}

	requireAuth, err := strconv.ParseBool(getEnv("MANUSCRIPTS_REQUIRE_AUTH", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MANUSCRIPTS_REQUIRE_AUTH: %w", err)
	}

	cfg := &Config{
		ServerPort:     port,
		DatabaseURL:    getEnv("DATABASE_URL", "./manuscripts.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: requestTimeout,

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: maxUploadMB << 20,
		BlobBackend:    strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendLocal)),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},

		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ManuscriptsRequireAuth: requireAuth,
		LoginRatePerMinute:     loginRate,

		OrphanSweepSchedule: getEnv("ORPHAN_SWEEP_SCHEDULE", "@every 1h"),
		OrphanGracePeriod:   gracePeriod,
		DiskAlertPercent:    diskAlert,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.BlobBackend {
	case BlobBackendLocal:
	case BlobBackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET must be set when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
