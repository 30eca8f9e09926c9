package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"BOOKCLUB_ENVIRONMENT", "BOOKCLUB_HTTP_ADDR", "BOOKCLUB_STORAGE_DRIVER",
		"BOOKCLUB_AUTH_MODE", "BOOKCLUB_BLOB_DRIVER", "BOOKCLUB_HTTP_READ_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	cfg := NewConfig()
	if cfg.Environment != EnvDevelopment {
		t.Fatalf("expected development, got %q", cfg.Environment)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Storage.Driver != StorageSQLite || cfg.Auth.Mode != AuthHMAC || cfg.Blob.Driver != BlobFilesystem {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("BOOKCLUB_STORAGE_DRIVER", "Postgres")
	t.Setenv("BOOKCLUB_POSTGRES_DSN", "postgres://db/bookclub")
	t.Setenv("BOOKCLUB_HTTP_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("BOOKCLUB_HTTP_BODY_LIMIT", "2048")
	t.Setenv("BOOKCLUB_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("BOOKCLUB_JWT_TTL", "not-a-duration")

	cfg := NewConfig()
	if cfg.Storage.Driver != StoragePostgres {
		t.Fatalf("driver should be lower-cased, got %q", cfg.Storage.Driver)
	}
	if cfg.HTTP.ShutdownTimeout != 3*time.Second || cfg.HTTP.BodyLimit != 2048 {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if !cfg.Blob.S3.PathStyle {
		t.Fatalf("expected path style")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("invalid duration should fall back to default, got %s", cfg.Auth.TokenTTL)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Environment: EnvProduction,
		Storage:     StorageConfig{Driver: StoragePostgres},
		Auth:        AuthConfig{Mode: AuthHMAC},
		Blob:        BlobConfig{Driver: "ftp"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"BOOKCLUB_POSTGRES_DSN", "BOOKCLUB_JWT_SECRET", `"ftp"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadFilesReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("BOOKCLUB_HTTP_ADDR=:9999\nBOOKCLUB_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("BOOKCLUB_HTTP_ADDR", "")
	t.Setenv("BOOKCLUB_LOG_LEVEL", "")
	os.Unsetenv("BOOKCLUB_HTTP_ADDR")
	os.Unsetenv("BOOKCLUB_LOG_LEVEL")

	cfg, err := LoadFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" || cfg.Log.Level != "debug" {
		t.Fatalf("dotenv values not applied: %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Environment: EnvProduction, Log: LogConfig{Level: "info"}}, &buf)
	logger.Debug("hidden")
	logger.Info("hello", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "hello" || entry["service"] != "bookclub" || entry["k"] != "v" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
