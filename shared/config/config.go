package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Database pool
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration

	// JWT
	JWTSecret      string
	JWTExpireHours string
	JWTIssuer      string

	// AuthAllowAnonymous lets requests without a bearer token through as
	// system calls with no tenant.
	AuthAllowAnonymous bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string
	RedisEnabled  bool

	// Tenant visibility cache
	VisibleSetCacheTTL time.Duration

	// Domain events
	EventsRedisChannel string
	EventsAuditEnabled bool

	// Frontend URL (CORS + websocket origin check)
	FrontendURL    string
	AllowedOrigins []string

	// Service URLs
	CoreServiceURL string

	// Seed data
	SuperAdminEmail    string
	SuperAdminPassword string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = FromEnv()
	return cfg
}

// FromEnv builds a Config from the current process environment without touching .env files
func FromEnv() *Config {
	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")

	return &Config{
		// Environment
		AppEnv:    getEnv("APP_ENV", "local"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "assurcore"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		// JWT
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours: getEnv("JWT_EXPIRE_HOURS", "3"),
		JWTIssuer:      getEnv("JWT_ISSUER", "assurcore"),

		AuthAllowAnonymous: getEnvAsBool("AUTH_ALLOW_ANONYMOUS", false),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", true),

		VisibleSetCacheTTL: getEnvAsDuration("VISIBLE_SET_CACHE_TTL", 5*time.Minute),

		EventsRedisChannel: getEnv("EVENTS_REDIS_CHANNEL", "organization.events"),
		EventsAuditEnabled: getEnvAsBool("EVENTS_AUDIT_ENABLED", true),

		FrontendURL:    frontendURL,
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{frontendURL}),

		CoreServiceURL: getEnv("CORE_SERVICE_URL", "http://localhost:8003"),

		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", "admin@assurcore.local"),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", "admin123"),
	}
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// IsLocal reports whether the service runs against a developer machine
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local" || c.DBHost == "localhost" || c.DBHost == "127.0.0.1"
}

// GetJWTExpireDuration returns the access token lifetime
func (c *Config) GetJWTExpireDuration() time.Duration {
	hours, err := strconv.Atoi(c.JWTExpireHours)
	if err != nil || hours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// GetRedisDB returns the redis database number
func (c *Config) GetRedisDB() int {
	if value, err := strconv.Atoi(c.RedisDB); err == nil {
		return value
	}
	return 0
}

// ServicePort extracts the port from a service URL such as http://localhost:8003
func ServicePort(serviceURL, fallback string) string {
	idx := strings.LastIndex(serviceURL, ":")
	if idx < 0 || idx == len(serviceURL)-1 {
		return fallback
	}
	port := strings.TrimRight(serviceURL[idx+1:], "/")
	if _, err := strconv.Atoi(port); err != nil {
		return fallback
	}
	return port
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
