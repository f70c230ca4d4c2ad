package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	LogLevel         string
	CORSAllowOrigin  []string
	DatabaseURL      string
	JWTSecret        string
	JWTTTL           time.Duration
	ObjectStoreType  string
	LocalStoreDir    string
	PublicBaseURL    string
	AWSRegion        string
	S3Bucket         string
	S3Endpoint       string
	MinIO            MinIOConfig
	GoogleMapsAPIKey string
	GeocodeCacheSize int
	StatusQueueURL   string
	MaxUploadBytes   int64
	MaxBatchFiles    int
	LoginRatePerSec  float64
	LoginBurst       int
	AutoMigrate      bool
	AdminUsername    string
	AdminPassword    string
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Load reads configuration from .env files and environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:             v.GetString("PORT"),
		Env:              env,
		LogLevel:         v.GetString("LOG_LEVEL"),
		CORSAllowOrigin:  splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		ObjectStoreType:  normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:    v.GetString("LOCAL_STORE_DIR"),
		PublicBaseURL:    strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		AWSRegion:        v.GetString("AWS_REGION"),
		S3Bucket:         v.GetString("S3_BUCKET"),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		GoogleMapsAPIKey: v.GetString("GOOGLE_MAPS_API_KEY"),
		GeocodeCacheSize: v.GetInt("GEOCODE_CACHE_SIZE"),
		StatusQueueURL:   v.GetString("STATUS_QUEUE_URL"),
		MaxUploadBytes:   v.GetInt64("MAX_UPLOAD_BYTES"),
		MaxBatchFiles:    v.GetInt("MAX_BATCH_FILES"),
		LoginRatePerSec:  v.GetFloat64("LOGIN_RATE_PER_SEC"),
		LoginBurst:       v.GetInt("LOGIN_BURST"),
		AutoMigrate:      v.GetBool("AUTO_MIGRATE"),
		AdminUsername:    strings.TrimSpace(v.GetString("ADMIN_USERNAME")),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if env == "production" {
		if cfg.DatabaseURL == "" {
			log.Printf("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "" {
			log.Printf("JWT_SECRET is required in production")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("GEOCODE_CACHE_SIZE", 512)
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("MAX_BATCH_FILES", 10)
	v.SetDefault("LOGIN_RATE_PER_SEC", 1)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("MINIO_BUCKET", "collateral")
	v.SetDefault("AUTO_MIGRATE", true)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
