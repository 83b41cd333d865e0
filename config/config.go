package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	DatabasePath   string
	Redis          RedisConfig
	Signaling      SignalingConfig
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type SignalingConfig struct {
	// CallRingTimeout expires calls left ringing; zero disables the sweeper
	CallRingTimeout   time.Duration
	RoomMessageTTL    time.Duration
	RequireMembership bool
	SendBufferSize    int
}

// Load reads configuration from the environment, after loading a .env file if one exists
func Load() *Config {
	_ = godotenv.Load()

	// Parse allowed origins (comma-separated)
	var origins []string
	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/signaling.db"),
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Signaling: SignalingConfig{
			CallRingTimeout:   getDuration("CALL_RING_TIMEOUT", 60*time.Second),
			RoomMessageTTL:    getDuration("ROOM_MESSAGE_TTL", 24*time.Hour),
			RequireMembership: getBool("ROOM_REQUIRE_MEMBERSHIP", false),
			SendBufferSize:    getInt("SEND_BUFFER_SIZE", 256),
		},
	}
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
