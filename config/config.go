package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Graph         GraphConfig
	Sync          SyncConfig
	Notifications NotificationConfig
	App           AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GraphConfig holds the Azure AD app registration used for the
// client-credentials flow against Microsoft Graph.
type GraphConfig struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type SyncConfig struct {
	Interval        time.Duration
	Timeout         time.Duration
	LockTTL         time.Duration
	MaxGroups       int
	MaxTasksPerPlan int
	StaleAfter      time.Duration
}

type NotificationConfig struct {
	CheckInterval time.Duration
	DueSoonHours  int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	APIKey      string
	CORSOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	tenant := getEnv("AZURE_TENANT_ID", "common")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Graph: GraphConfig{
			BaseURL:      getEnv("MS_GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
			TenantID:     tenant,
			ClientID:     getEnv("AZURE_CLIENT_ID", ""),
			ClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		},
		Sync: SyncConfig{
			Interval:        getEnvAsDuration("SYNC_INTERVAL", time.Hour),
			Timeout:         getEnvAsDuration("SYNC_TIMEOUT", 10*time.Minute),
			LockTTL:         getEnvAsDuration("SYNC_LOCK_TTL", 15*time.Minute),
			MaxGroups:       getEnvAsInt("MAX_GROUPS_TO_PROCESS", 100),
			MaxTasksPerPlan: getEnvAsInt("MAX_TASKS_PER_PLANNER", 1000),
			StaleAfter:      getEnvAsDuration("SYNC_STALE_AFTER", time.Hour),
		},
		Notifications: NotificationConfig{
			CheckInterval: getEnvAsDuration("NOTIFICATION_CHECK_INTERVAL", 5*time.Minute),
			DueSoonHours:  getEnvAsInt("DUE_SOON_REMINDER_HOURS", 24),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			APIKey:      getEnv("API_KEY", ""),
			CORSOrigins: getEnvAsSlice("CORS_ORIGINS", []string{"http://localhost:5000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
