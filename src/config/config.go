package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	SessionStore       string
	SessionTTL         time.Duration
	ImportPageSize     int
	MaxUploadMB        int64
	CORSAllowedOrigins []string
	ReadOnly           bool
	LogLevel           string
	LogFormat          string
}

const (
	SessionStorePostgres = "postgres"
	SessionStoreMemory   = "memory"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// SetDefaults registers every key with its default and binds it to the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("IMPORT_PAGE_SIZE", 10)
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("READ_ONLY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.AutomaticEnv()
}

// Load reads a .env file when present, then resolves every key from v, where flags,
// the environment and defaults have already been bound.
func Load(v *viper.Viper) (Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:               v.GetString("PORT"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		SessionStore:       strings.ToLower(v.GetString("SESSION_STORE")),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		ImportPageSize:     v.GetInt("IMPORT_PAGE_SIZE"),
		MaxUploadMB:        v.GetInt64("MAX_UPLOAD_MB"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		ReadOnly:           v.GetBool("READ_ONLY"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, ErrMissingDatabaseURL
	}
	if cfg.SessionStore != SessionStorePostgres && cfg.SessionStore != SessionStoreMemory {
		return cfg, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStorePostgres, SessionStoreMemory, cfg.SessionStore)
	}
	if cfg.SessionTTL <= 0 {
		return cfg, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.ImportPageSize <= 0 {
		return cfg, fmt.Errorf("IMPORT_PAGE_SIZE must be positive")
	}
	if cfg.MaxUploadMB <= 0 {
		return cfg, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return cfg, nil
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
