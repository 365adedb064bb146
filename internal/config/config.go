package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	LogLevel  string
	LogFormat string

	DigestEnabled bool
	// DigestAt is the daily digest time as an offset from midnight.
	DigestAt           time.Duration
	DigestLocation     *time.Location
	WorkerPollInterval time.Duration

	// An empty DigestS3Bucket disables the S3 archive.
	DigestS3Bucket    string
	DigestS3Region    string
	DigestS3Endpoint  string
	DigestS3AccessKey string
	DigestS3SecretKey string
}

var ErrMissingDatabaseURL = errors.New("missing env: DATABASE_URL")

// Load reads a .env file if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DigestS3Bucket:    getenv("DIGEST_S3_BUCKET", ""),
		DigestS3Region:    getenv("DIGEST_S3_REGION", "us-east-1"),
		DigestS3Endpoint:  getenv("DIGEST_S3_ENDPOINT", ""),
		DigestS3AccessKey: getenv("DIGEST_S3_ACCESS_KEY", ""),
		DigestS3SecretKey: getenv("DIGEST_S3_SECRET_KEY", ""),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.DigestEnabled, err = strconv.ParseBool(getenv("DIGEST_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("DIGEST_ENABLED: %w", err)
	}
	if cfg.DigestAt, err = ParseClock(getenv("DIGEST_AT", "18:00")); err != nil {
		return Config{}, fmt.Errorf("DIGEST_AT: %w", err)
	}
	if cfg.DigestLocation, err = time.LoadLocation(getenv("DIGEST_TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("DIGEST_TIMEZONE: %w", err)
	}
	if cfg.WorkerPollInterval, err = time.ParseDuration(getenv("WORKER_POLL_INTERVAL", "800ms")); err != nil {
		return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL: %w", err)
	}
	if cfg.WorkerPollInterval <= 0 {
		return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL: must be positive, got %s", cfg.WorkerPollInterval)
	}
	return cfg, nil
}

// Validate reports settings required to reach the database.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// ParseClock parses a 24h "HH:MM" wall-clock time into an offset from
// midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
