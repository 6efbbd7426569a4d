package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Pass     PassConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver         string // postgres | sqlite
	PostgresDSN    string
	SQLiteDSN      string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
	RetryDelay     time.Duration
	AutoMigrate    bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	BookingCommitted string
	EventChanged     string
}

func (t TopicConfig) All() []string {
	return []string{t.BookingCommitted, t.EventChanged}
}

type AuthConfig struct {
	OIDCIssuer   string
	OIDCClientID string
	JWTSecret    string
	JWTIssuer    string
	AdminRole    string
}

type BookingConfig struct {
	LockTTL   time.Duration
	LockWait  time.Duration
	LockRetry time.Duration
}

// DefaultPassSecret is the placeholder PASS_SECRET_KEY; passes sealed with it are forgeable.
const DefaultPassSecret = "change-me"

type PassConfig struct {
	SecretKey string
}

func (p PassConfig) UsesDefaultSecret() bool {
	return p.SecretKey == DefaultPassSecret
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8085"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			PostgresDSN:    os.Getenv("POSTGRES_DSN"),
			SQLiteDSN:      getEnv("SQLITE_DSN", "file:booking.db?cache=shared"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryDelay:     getEnvDuration("DB_RETRY_DELAY", 2*time.Second),
			AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				BookingCommitted: getEnv("KAFKA_TOPIC_BOOKING_COMMITTED", "ms-booking.booking.committed"),
				EventChanged:     getEnv("KAFKA_TOPIC_EVENT_CHANGED", "ms-booking.event.changed"),
			},
		},
		Auth: AuthConfig{
			OIDCIssuer:   os.Getenv("OIDC_ISSUER"),
			OIDCClientID: os.Getenv("OIDC_CLIENT_ID"),
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTIssuer:    getEnv("JWT_ISSUER", "ms-booking"),
			AdminRole:    getEnv("ADMIN_ROLE", "admin"),
		},
		Booking: BookingConfig{
			LockTTL:   getEnvDuration("BOOKING_LOCK_TTL", 10*time.Second),
			LockWait:  getEnvDuration("BOOKING_LOCK_WAIT", 3*time.Second),
			LockRetry: getEnvDuration("BOOKING_LOCK_RETRY", 25*time.Millisecond),
		},
		Pass: PassConfig{
			SecretKey: getEnv("PASS_SECRET_KEY", DefaultPassSecret),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
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
