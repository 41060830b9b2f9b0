package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Sweep    SweepConfig
	Overtime OvertimeConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MinConns       int32
	MigrateOnStart bool
}

// JWTConfig holds the key used to verify tokens from the identity provider
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// RedisConfig is optional. An empty Addr disables the sweep lease.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional. No brokers means notices are only logged.
type KafkaConfig struct {
	Brokers       []string
	ReminderTopic string
}

type SweepConfig struct {
	Interval    time.Duration
	Concurrency int
	LeaseTTL    time.Duration
}

type OvertimeConfig struct {
	WeeklyThresholdHours decimal.Decimal
	WeekStartDay         time.Weekday
}

// Load reads the configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.ParseInt(getEnv("DB_MIN_CONNS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	migrateOnStart, err := strconv.ParseBool(getEnv("MIGRATE_ON_START", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIGRATE_ON_START: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           dbPort,
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", ""),
		Name:           getEnv("DB_NAME", "timeclock"),
		SSLMode:        getEnv("DB_SSL_MODE", "disable"),
		MaxConns:       int32(maxConns),
		MinConns:       int32(minConns),
		MigrateOnStart: migrateOnStart,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	config.Kafka = KafkaConfig{
		Brokers:       getEnvSlice("KAFKA_BROKERS"),
		ReminderTopic: getEnv("KAFKA_REMINDER_TOPIC", "timeclock.overdue-punch"),
	}

	// Sweep configuration
	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	sweepConcurrency, err := strconv.Atoi(getEnv("SWEEP_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_CONCURRENCY: %w", err)
	}
	leaseTTL, err := time.ParseDuration(getEnv("SWEEP_LEASE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_LEASE_TTL: %w", err)
	}

	config.Sweep = SweepConfig{
		Interval:    sweepInterval,
		Concurrency: sweepConcurrency,
		LeaseTTL:    leaseTTL,
	}

	// Overtime configuration
	threshold, err := decimal.NewFromString(getEnv("OVERTIME_WEEKLY_THRESHOLD_HOURS", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERTIME_WEEKLY_THRESHOLD_HOURS: %w", err)
	}
	weekStart, ok := overtime.ParseWeekday(getEnv("WEEK_START_DAY", "monday"))
	if !ok {
		return nil, fmt.Errorf("invalid WEEK_START_DAY: %w", overtime.ErrInvalidWeekStart)
	}

	config.Overtime = OvertimeConfig{
		WeeklyThresholdHours: threshold,
		WeekStartDay:         weekStart,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Sweep.Interval < time.Minute {
		return fmt.Errorf("SWEEP_INTERVAL must be at least 1m, got %s", c.Sweep.Interval)
	}
	if c.Sweep.Concurrency < 1 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be positive, got %d", c.Sweep.Concurrency)
	}
	if !c.Overtime.WeeklyThresholdHours.IsPositive() {
		return fmt.Errorf("OVERTIME_WEEKLY_THRESHOLD_HOURS must be positive, got %s", c.Overtime.WeeklyThresholdHours)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
