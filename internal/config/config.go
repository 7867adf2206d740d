// Package config loads runtime configuration from environment variables.
// All values are read once at startup; nothing in the request path goes
// back to the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all process-wide settings. The two token scopes carry
// distinct secrets and TTLs so that rotating one secret leaves the other
// token family valid.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	BcryptCost         int

	AMQPURL string // RabbitMQ connection string (optional, events disabled when empty)

	S3Endpoint  string // MinIO/S3 base endpoint
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string // base URL prefix for uploaded objects
}

// Load reads configuration from the environment. Missing required values
// abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessTokenSecret:  must("ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:     time.Duration(mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTokenSecret: must("REFRESH_TOKEN_SECRET"),
		RefreshTokenTTL:    time.Duration(mustInt("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		BcryptCost:         mustInt("BCRYPT_COST"),

		AMQPURL: os.Getenv("RABBITMQ_URL"),

		S3Endpoint:  must("S3_ENDPOINT"),
		S3Region:    envStr("S3_REGION", "us-east-1"),
		S3Bucket:    must("S3_BUCKET"),
		S3AccessKey: must("S3_ACCESS_KEY"),
		S3SecretKey: must("S3_SECRET_KEY"),
		S3PublicURL: must("S3_PUBLIC_URL"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
