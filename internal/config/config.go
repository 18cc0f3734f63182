package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
		// handshake limit per client IP
		RateLimit  int
		RateWindow time.Duration
	}

	JWT struct {
		Secret    string
		Issuer    string
		AccessTTL time.Duration
	}

	Chat struct {
		SendCooldown     time.Duration
		MaxContentLength int
		SendBuffer       int
		StoreTimeout     time.Duration
	}

	// per-user swipe limit on the Connection API
	Swipe struct {
		Limit  int
		Window time.Duration
	}

	Compat struct {
		Endpoint   string
		APIKey     string
		APIVersion string
		Model      string
		Workers    int
		QueueSize  int
		Timeout    time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "devmatch")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "devmatch")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP / websocket
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8000")
	cfg.HTTP.AllowedOrigins = splitList(getEnvDefault("HTTP_ALLOWED_ORIGINS", "https://localhost:3000"))
	cfg.HTTP.RateLimit = getEnvInt("HTTP_RATE_LIMIT", 200)
	cfg.HTTP.RateWindow = getEnvDuration("HTTP_RATE_WINDOW", 15*time.Minute)

	// JWT
	cfg.JWT.Secret = os.Getenv("JWT_ACCESS_SECRET")
	cfg.JWT.Issuer = getEnvDefault("JWT_ISSUER", "devmatch")
	cfg.JWT.AccessTTL = getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute)

	// Chat
	cfg.Chat.SendCooldown = getEnvDuration("CHAT_SEND_COOLDOWN", time.Second)
	cfg.Chat.MaxContentLength = getEnvInt("CHAT_MAX_CONTENT_LENGTH", 2000)
	cfg.Chat.SendBuffer = getEnvInt("CHAT_SEND_BUFFER", 256)
	cfg.Chat.StoreTimeout = getEnvDuration("CHAT_STORE_TIMEOUT", 5*time.Second)

	// Swipes
	cfg.Swipe.Limit = getEnvInt("SWIPE_LIMIT", 20)
	cfg.Swipe.Window = getEnvDuration("SWIPE_WINDOW", time.Minute)

	// Compatibility scoring
	cfg.Compat.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	cfg.Compat.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	cfg.Compat.APIVersion = getEnvDefault("AZURE_OPENAI_API_VERSION", "")
	cfg.Compat.Model = getEnvDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o-mini")
	cfg.Compat.Workers = getEnvInt("COMPAT_WORKERS", 2)
	cfg.Compat.QueueSize = getEnvInt("COMPAT_QUEUE_SIZE", 64)
	cfg.Compat.Timeout = getEnvDuration("COMPAT_TIMEOUT", 30*time.Second)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

// getEnvDuration accepts Go duration syntax ("1500ms") or a bare number of milliseconds.
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := getEnvDefault(k, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
