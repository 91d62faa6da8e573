package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.EventsBackend != "log" {
		t.Errorf("expected log events backend, got %s", cfg.EventsBackend)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Errorf("expected 30s lock ttl, got %s", cfg.LockTTL)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
http_port = "9090"
database_driver = "mysql"
jwt_secret = "` + testSecret + `"
log_level = "debug"
lock_ttl = "5s"
events_backend = "redis"
redis_addr = "localhost:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTPPort != "7070" {
		t.Errorf("expected env to override port, got %s", cfg.HTTPPort)
	}
	if cfg.DatabaseDriver != "mysql" {
		t.Errorf("expected mysql, got %s", cfg.DatabaseDriver)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.LockTTL != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.LockTTL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr from file, got %s", cfg.RedisAddr)
	}
}

func TestLoadFromRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET is not set"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32"},
		{"bad driver", map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "oracle"}, "unsupported DATABASE_DRIVER"},
		{"redis without addr", map[string]string{"JWT_SECRET": testSecret, "EVENTS_BACKEND": "redis"}, "requires REDIS_ADDR"},
		{"bad ttl", map[string]string{"JWT_SECRET": testSecret, "LOCK_TTL": "soon"}, "not a duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom("")
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
