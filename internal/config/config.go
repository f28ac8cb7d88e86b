package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (moderator / admin endpoints)
	JWTSecret string

	// Service key for the event ingress (bcrypt hash of the shared key)
	ServiceKeyHash string

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Orchestrator
	EventMaxAttempts int
	EventBackoffBase time.Duration

	// Review queue age escalation
	QueueAgeInterval time.Duration

	// Outbound notifications
	NotifyWebhookURL string

	// Server
	Port        string
	CORSOrigins string

	// Rules registry (empty = built-in defaults)
	RulesConfigPath string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "trustcore_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		ServiceKeyHash: getEnv("SERVICE_KEY_HASH", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		EventMaxAttempts: parseInt(getEnv("EVENT_MAX_ATTEMPTS", "3")),
		EventBackoffBase: parseDuration(getEnv("EVENT_BACKOFF_BASE", "200ms"), 200*time.Millisecond),

		QueueAgeInterval: parseDuration(getEnv("QUEUE_AGE_INTERVAL", "1h"), time.Hour),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		RulesConfigPath: getEnv("RULES_CONFIG_PATH", ""),
	}
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

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 3
	}
	return n
}
