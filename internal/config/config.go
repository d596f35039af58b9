// Package config loads application configuration from environment
// variables. Required values are enforced with must(); optional values
// carry defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. The JWT secret is read once here
// and injected into the token service; nothing reads it ambiently after
// startup.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional, empty allowed
	DBHost string
	DBPort string
	DBName string

	JWTSecret  string        // symmetric secret for signing access tokens
	AccessTTL  time.Duration // access token lifetime (default 15m)
	RefreshTTL time.Duration // refresh token lifetime (default 720h = 30 days)
	BcryptCost int           // bcrypt cost for password hashing

	LogLevel string // slog level: debug|info|warn|error

	// Object storage for attachment blobs. Uploads are disabled when
	// StorageEndpoint is empty.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
	StoragePublicURL string // external base URL for serving attachment blobs

	BrokerURL string // AMQP broker; note events are disabled when empty
}

// Load reads configuration from the environment. Missing required
// variables abort startup with a fatal log.
func Load() Config {
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("APP_PORT", "8080"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		BcryptCost: envInt("BCRYPT_COST", 12),

		LogLevel: getenv("LOG_LEVEL", "info"),

		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    getenv("STORAGE_BUCKET", "note-attachments"),
		StorageUseSSL:    envBool("STORAGE_USE_SSL", false),
		StoragePublicURL: os.Getenv("STORAGE_PUBLIC_URL"),

		BrokerURL: brokerURL(),
	}
}

func brokerURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
