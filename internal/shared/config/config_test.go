package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %s", cfg.JWTTTL)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("expected 5MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected dev secret fallback")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example/files/")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("JWT_TTL", "90m")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "minio" {
		t.Fatalf("expected minio, got %q", cfg.ObjectStoreType)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if cfg.PublicBaseURL != "https://cdn.example/files" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
	if cfg.MinIO.Endpoint != "minio:9000" || !cfg.MinIO.UseSSL {
		t.Fatalf("unexpected minio config %+v", cfg.MinIO)
	}
	if cfg.JWTTTL != 90*time.Minute {
		t.Fatalf("expected 90m ttl, got %s", cfg.JWTTTL)
	}
}
