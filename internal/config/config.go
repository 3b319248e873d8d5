package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Store       StoreConfig
	Outbox      OutboxConfig
	Messaging   MessagingConfig
	Scheduler   SchedulerConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnableMetrics bool
	MetricsPath   string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// StoreConfig selects the aggregate store backend.
type StoreConfig struct {
	Driver          string
	ConflictRetries int
}

type OutboxConfig struct {
	Path           string
	Bucket         string
	RetentionHours int
	RelayInterval  time.Duration
	BatchSize      int
	MaxRetry       int
}

type MessagingConfig struct {
	Driver       string
	AMQPURL      string
	Exchange     string
	KafkaBrokers []string
	TopicPrefix  string
}

type SchedulerConfig struct {
	SweepEnabled  bool
	SweepInterval time.Duration
	MonitorEvery  time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

var defaults = map[string]any{
	"APP_NAME":                 "storefront",
	"APP_ENV":                  "development",
	"SERVER_HOST":              "0.0.0.0",
	"SERVER_PORT":              "8080",
	"SERVER_READ_TIMEOUT":      "10s",
	"SERVER_WRITE_TIMEOUT":     "10s",
	"SERVER_IDLE_TIMEOUT":      "120s",
	"SERVER_MAX_CONN":          0,
	"SERVER_ENABLE_METRICS":    true,
	"METRICS_PATH":             "/metrics",
	"DB_HOST":                  "localhost",
	"DB_PORT":                  "5432",
	"DB_NAME":                  "storefront",
	"DB_USER":                  "storefront",
	"DB_MAX_OPEN_CONNS":        25,
	"DB_MAX_IDLE_CONNS":        10,
	"DB_CONN_LIFETIME":         "1h",
	"DB_SSLMODE":               "disable",
	"REDIS_URL":                "redis://localhost:6379",
	"REDIS_DB":                 0,
	"REDIS_KEY_PREFIX":         "storefront:",
	"JWT_ISSUER":               "storefront",
	"STORE_DRIVER":             StorePostgres,
	"STORE_CONFLICT_RETRIES":   3,
	"BOLTDB_PATH":              "./data/outbox.db",
	"OUTBOX_BUCKET":            "outbox",
	"OUTBOX_RETENTION_HOURS":   72,
	"OUTBOX_RELAY_INTERVAL":    "5s",
	"OUTBOX_BATCH_SIZE":        100,
	"MAX_RETRY_ATTEMPTS":       10,
	"MESSAGING_DRIVER":         "log",
	"AMQP_EXCHANGE":            "storefront.events",
	"KAFKA_TOPIC_PREFIX":       "storefront",
	"SUBSCRIPTION_SWEEP":       true,
	"SUBSCRIPTION_SWEEP_EVERY": "1m",
	"MONITOR_INTERVAL":         "10s",
	"REQUEST_TIMEOUT_SECONDS":  "5s",
	"SHUTDOWN_TIMEOUT_SECONDS": "15s",
	"LOG_LEVEL":                "info",
	"LOG_ENCODING":             "json",
	"RUN_MIGRATIONS":           true,
	"MIGRATIONS_PATH":          "./assets/migrations",
}

// Load reads configuration from environment variables (optionally .env and a
// CONFIG_FILE overlay) and applies defaults so the service can boot in any environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.AllowEmptyEnv(false)

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		AppName:     v.GetString("APP_NAME"),
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:          v.GetString("SERVER_HOST"),
			Port:          v.GetString("SERVER_PORT"),
			ReadTimeout:   getDuration(v, "SERVER_READ_TIMEOUT"),
			WriteTimeout:  getDuration(v, "SERVER_WRITE_TIMEOUT"),
			IdleTimeout:   getDuration(v, "SERVER_IDLE_TIMEOUT"),
			MaxConn:       v.GetInt("SERVER_MAX_CONN"),
			EnableMetrics: v.GetBool("SERVER_ENABLE_METRICS"),
			MetricsPath:   v.GetString("METRICS_PATH"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxConnLifetime: getDuration(v, "DB_CONN_LIFETIME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("REDIS_URL"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
			ConflictRetries: v.GetInt("STORE_CONFLICT_RETRIES"),
		},
		Outbox: OutboxConfig{
			Path:           v.GetString("BOLTDB_PATH"),
			Bucket:         v.GetString("OUTBOX_BUCKET"),
			RetentionHours: v.GetInt("OUTBOX_RETENTION_HOURS"),
			RelayInterval:  getDuration(v, "OUTBOX_RELAY_INTERVAL"),
			BatchSize:      v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxRetry:       v.GetInt("MAX_RETRY_ATTEMPTS"),
		},
		Messaging: MessagingConfig{
			Driver:       strings.ToLower(v.GetString("MESSAGING_DRIVER")),
			AMQPURL:      v.GetString("AMQP_URL"),
			Exchange:     v.GetString("AMQP_EXCHANGE"),
			KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
			TopicPrefix:  v.GetString("KAFKA_TOPIC_PREFIX"),
		},
		Scheduler: SchedulerConfig{
			SweepEnabled:  v.GetBool("SUBSCRIPTION_SWEEP"),
			SweepInterval: getDuration(v, "SUBSCRIPTION_SWEEP_EVERY"),
			MonitorEvery:  getDuration(v, "MONITOR_INTERVAL"),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration(v, "REQUEST_TIMEOUT_SECONDS"),
			ShutdownTimeout: getDuration(v, "SHUTDOWN_TIMEOUT_SECONDS"),
		},
		Logger: LoggerConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
		Migrations: MigrationsConfig{
			Enabled: v.GetBool("RUN_MIGRATIONS"),
			Path:    v.GetString("MIGRATIONS_PATH"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.ConflictRetries < 1 {
		return fmt.Errorf("config: STORE_CONFLICT_RETRIES must be at least 1")
	}
	if c.Outbox.RelayInterval < time.Second {
		return fmt.Errorf("config: OUTBOX_RELAY_INTERVAL must be at least 1s")
	}
	if c.Scheduler.SweepEnabled && c.Scheduler.SweepInterval < time.Second {
		return fmt.Errorf("config: SUBSCRIPTION_SWEEP_EVERY must be at least 1s")
	}
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

// getDuration accepts Go durations ("30s") and bare seconds ("30").
func getDuration(v *viper.Viper, key string) time.Duration {
	val := strings.TrimSpace(v.GetString(key))
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if fallback, ok := defaults[key].(string); ok {
		if parsed, err := time.ParseDuration(fallback); err == nil {
			return parsed
		}
	}
	return 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
