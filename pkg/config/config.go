package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	CRM          CRMConfig
	LMS          LMSConfig
	Conferencing ConferencingConfig
	Sync         SyncConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CRMConfig points at the external system of record for participant rosters.
type CRMConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
}

// LMSConfig points at the remote learning management system.
type LMSConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// ConferencingConfig points at the video-conferencing provider. An empty
// base URL disables registrant syncing.
type ConferencingConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// SyncConfig controls the background program sync scheduler.
type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
	Programs []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CRM = CRMConfig{
		BaseURL:  v.GetString("CRM_BASE_URL"),
		Token:    v.GetString("CRM_API_TOKEN"),
		Timeout:  parseDuration(v.GetString("CRM_TIMEOUT"), 30*time.Second),
		PageSize: v.GetInt("CRM_PAGE_SIZE"),
	}

	cfg.LMS = LMSConfig{
		BaseURL: v.GetString("LMS_BASE_URL"),
		Token:   v.GetString("LMS_API_TOKEN"),
		Timeout: parseDuration(v.GetString("LMS_TIMEOUT"), 30*time.Second),
	}

	cfg.Conferencing = ConferencingConfig{
		BaseURL: v.GetString("CONFERENCING_BASE_URL"),
		Token:   v.GetString("CONFERENCING_API_TOKEN"),
		Timeout: parseDuration(v.GetString("CONFERENCING_TIMEOUT"), 15*time.Second),
	}

	cfg.Sync = SyncConfig{
		Enabled:  v.GetBool("SYNC_ENABLED"),
		Interval: parseDuration(v.GetString("SYNC_INTERVAL"), time.Hour),
		LockTTL:  parseDuration(v.GetString("SYNC_LOCK_TTL"), 30*time.Minute),
		Programs: splitAndTrim(v.GetString("SYNC_PROGRAMS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cohort_sync")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CRM_BASE_URL", "https://crm.example.com/api")
	v.SetDefault("CRM_API_TOKEN", "")
	v.SetDefault("CRM_TIMEOUT", "30s")
	v.SetDefault("CRM_PAGE_SIZE", 100)

	v.SetDefault("LMS_BASE_URL", "https://lms.example.com/api/v1")
	v.SetDefault("LMS_API_TOKEN", "")
	v.SetDefault("LMS_TIMEOUT", "30s")

	v.SetDefault("CONFERENCING_BASE_URL", "")
	v.SetDefault("CONFERENCING_API_TOKEN", "")
	v.SetDefault("CONFERENCING_TIMEOUT", "15s")

	v.SetDefault("SYNC_ENABLED", false)
	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("SYNC_LOCK_TTL", "30m")
	v.SetDefault("SYNC_PROGRAMS", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
