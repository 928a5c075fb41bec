package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is loaded once at startup and passed to the components that need it.
type Config struct {
	DBUser                string
	DBPassword            string
	DBHost                string
	DBPort                string
	DBName                string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	JWTSecret             string
	JWTExpiryHours        int
	JWTRefreshExpiryHours int
	ServerPort            string
	LogLevel              string
	AppEnv                string // development or production
	KeyPrefix             string // Redis key prefix
	RateLimitMax          int
	RateLimitWindow       time.Duration
	SweepCron             string // cron spec of the revoked-token sweep
	SendQueueSize         int    // per-session outbound buffer
	CORSOrigin            string
}

// LoadConfig reads the environment, after loading .env when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                os.Getenv("DB_PORT"),
		DBName:                os.Getenv("DB_NAME"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		ServerPort:            os.Getenv("SERVER_PORT"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
		AppEnv:                os.Getenv("APP_ENV"),
		KeyPrefix:             os.Getenv("REDIS_KEY_PREFIX"),
		SweepCron:             os.Getenv("REVOKED_SWEEP_CRON"),
		CORSOrigin:            os.Getenv("CORS_ALLOWED_ORIGIN"),
		RedisDB:               envInt("REDIS_DB", 0),
		JWTExpiryHours:        envInt("JWT_EXPIRY_HOURS", 24),
		JWTRefreshExpiryHours: envInt("JWT_REFRESH_EXPIRY_HOURS", 30*24),
		RateLimitMax:          envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:       time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 1)) * time.Second,
		SendQueueSize:         envInt("WS_SEND_QUEUE_SIZE", 256),
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "whistle:"
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = "0 0 * * *"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:3000"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logrus.Warnf("Invalid %s '%s', using default %d", key, v, def)
		return def
	}
	return n
}
