package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	// Server
	Port        string
	CORSOrigins string
	AppEnv      string

	// Store
	StoreDriver string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Mongo
	MongoURI      string
	MongoDatabase string

	// Locking
	LockDriver    string
	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration
	LockWait      time.Duration

	// Image host
	CloudinaryURL       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Sweep
	SweepHour        int
	SweepTimezone    string
	SweepConcurrency int

	LogRetention time.Duration

	// ContactHashKey keys the digest phone numbers are stored as.
	ContactHashKey string

	// AdminToken guards the /api/admin routes. Empty disables them.
	AdminToken string

	SentryDSN string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "relatai"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "relatai"),

		LockDriver:    strings.ToLower(getEnv("LOCK_DRIVER", LockLocal)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LockTTL:       parseDuration(getEnv("LOCK_TTL", "30s"), 30*time.Second),
		LockWait:      parseDuration(getEnv("LOCK_WAIT", "10s"), 10*time.Second),

		CloudinaryURL:       getEnv("CLOUDINARY_URL", ""),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		SweepHour:        parseInt(getEnv("SWEEP_HOUR", "3"), 3),
		SweepTimezone:    getEnv("SWEEP_TIMEZONE", "America/Sao_Paulo"),
		SweepConcurrency: parseInt(getEnv("SWEEP_CONCURRENCY", "4"), 4),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 720*time.Hour),

		ContactHashKey: getEnv("CONTACT_HASH_KEY", ""),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StorePostgres:
		if c.DBPassword == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required for the postgres store"))
		}
	case StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.LockDriver {
	case LockLocal, LockRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver))
	}
	if c.SweepHour < 0 || c.SweepHour > 23 {
		errs = append(errs, fmt.Errorf("SWEEP_HOUR must be between 0 and 23, got %d", c.SweepHour))
	}
	if _, err := time.LoadLocation(c.SweepTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid SWEEP_TIMEZONE: %w", err))
	}
	if c.SweepConcurrency < 1 {
		errs = append(errs, errors.New("SWEEP_CONCURRENCY must be positive"))
	}
	if len(c.ContactHashKey) > 64 {
		errs = append(errs, errors.New("CONTACT_HASH_KEY must be at most 64 bytes"))
	}
	return errors.Join(errs...)
}

// Location is the zone report ages and the sweep schedule are read in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) HasCloudinary() bool {
	return c.CloudinaryURL != "" ||
		(c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != "")
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
