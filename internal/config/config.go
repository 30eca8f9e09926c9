// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Auth modes.
const (
	AuthGoogle = "google"
	AuthHMAC   = "hmac"
)

// Blob drivers.
const (
	BlobFilesystem = "fs"
	BlobMemory     = "memory"
	BlobS3         = "s3"
)

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Log         LogConfig
	Storage     StorageConfig
	Auth        AuthConfig
	Blob        BlobConfig
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       int
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

type AuthConfig struct {
	Mode           string
	GoogleClientID string
	JWTSecret      string
	JWTIssuer      string
	TokenTTL       time.Duration
}

type BlobConfig struct {
	Driver string
	FSRoot string
	S3     S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads an optional .env file from the working directory and then builds
// the configuration from BOOKCLUB_* variables.
func Load() (Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit dotenv paths. Missing files are ignored.
// Variables already present in the environment take precedence.
func LoadFiles(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	cfg := NewConfig()
	return cfg, cfg.Validate()
}

// NewConfig builds the configuration from the current environment.
func NewConfig() Config {
	return Config{
		Environment: getEnv("BOOKCLUB_ENVIRONMENT", EnvDevelopment),
		HTTP: HTTPConfig{
			Addr:            getEnv("BOOKCLUB_HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("BOOKCLUB_HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("BOOKCLUB_HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("BOOKCLUB_HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			BodyLimit:       getEnvInt("BOOKCLUB_HTTP_BODY_LIMIT", 1<<20),
		},
		Log: LogConfig{
			Level: getEnv("BOOKCLUB_LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("BOOKCLUB_STORAGE_DRIVER", StorageSQLite)),
			SQLitePath:  getEnv("BOOKCLUB_SQLITE_PATH", "bookclub.db"),
			PostgresDSN: getEnv("BOOKCLUB_POSTGRES_DSN", ""),
		},
		Auth: AuthConfig{
			Mode:           strings.ToLower(getEnv("BOOKCLUB_AUTH_MODE", AuthHMAC)),
			GoogleClientID: getEnv("BOOKCLUB_GOOGLE_CLIENT_ID", ""),
			JWTSecret:      getEnv("BOOKCLUB_JWT_SECRET", ""),
			JWTIssuer:      getEnv("BOOKCLUB_JWT_ISSUER", "bookclub"),
			TokenTTL:       getEnvDuration("BOOKCLUB_JWT_TTL", 24*time.Hour),
		},
		Blob: BlobConfig{
			Driver: strings.ToLower(getEnv("BOOKCLUB_BLOB_DRIVER", BlobFilesystem)),
			FSRoot: getEnv("BOOKCLUB_BLOB_FS_ROOT", "./data/blob"),
			S3: S3Config{
				Bucket:          getEnv("BOOKCLUB_BLOB_S3_BUCKET", ""),
				Region:          getEnv("BOOKCLUB_BLOB_S3_REGION", "us-east-1"),
				Endpoint:        getEnv("BOOKCLUB_BLOB_S3_ENDPOINT", ""),
				PathStyle:       getEnvBool("BOOKCLUB_BLOB_S3_PATH_STYLE", false),
				AccessKeyID:     getEnv("BOOKCLUB_BLOB_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("BOOKCLUB_BLOB_S3_SECRET_ACCESS_KEY", ""),
			},
		},
	}
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate checks driver names and the settings each driver requires.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("BOOKCLUB_POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}
	switch c.Auth.Mode {
	case AuthGoogle:
		if c.Auth.GoogleClientID == "" {
			errs = append(errs, errors.New("BOOKCLUB_GOOGLE_CLIENT_ID is required for google auth"))
		}
	case AuthHMAC:
		if c.Auth.JWTSecret == "" && c.IsProduction() {
			errs = append(errs, errors.New("BOOKCLUB_JWT_SECRET is required in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported auth mode %q", c.Auth.Mode))
	}
	switch c.Blob.Driver {
	case BlobFilesystem, BlobMemory:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("BOOKCLUB_BLOB_S3_BUCKET is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported blob driver %q", c.Blob.Driver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
