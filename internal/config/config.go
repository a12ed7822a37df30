package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for every dentalflow binary.
type Config struct {
	Env      string
	LogLevel string

	// StoreDriver is "postgres" or "memory".
	StoreDriver string
	DatabaseURL string
	JWTSecret   string

	GRPCAddr string
	HTTPAddr string
	OpsAddr  string

	RateLimitRPS   float64
	RateLimitBurst int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupeTTL     time.Duration

	AMQPURL   string
	PushTopic string

	// MailProvider is "log", "sendgrid" or "ses".
	MailProvider     string
	MailFromEmail    string
	MailFromName     string
	SendGridAPIKey   string
	AWSRegion        string
	MailBatchSize    int
	MailPollInterval time.Duration
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		GRPCAddr: getEnv("GRPC_ADDR", ":50051"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		OpsAddr:  getEnv("OPS_ADDR", ":9090"),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		DedupeTTL:     getEnvAsDuration("DEDUPE_TTL", 10*time.Minute),

		AMQPURL:   getEnv("AMQP_URL", ""),
		PushTopic: getEnv("PUSH_TOPIC", "all"),

		MailProvider:     getEnv("MAIL_PROVIDER", "log"),
		MailFromEmail:    getEnv("MAIL_FROM_EMAIL", "no-reply@dentalflow.local"),
		MailFromName:     getEnv("MAIL_FROM_NAME", "DentalFlow"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		MailBatchSize:    getEnvAsInt("MAIL_BATCH_SIZE", 25),
		MailPollInterval: getEnvAsDuration("MAIL_POLL_INTERVAL", 2*time.Second),
	}
}

func (c *Config) UseMemoryStore() bool {
	return c.StoreDriver == "memory"
}

func (c *Config) RequireDatabase() error {
	if c.UseMemoryStore() {
		return nil
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) RequireServer() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
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
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
