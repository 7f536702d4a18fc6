package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	Store string      `yaml:"store"`
	MySQL MySQLConfig `yaml:"mysql"`
	Redis RedisConfig `yaml:"redis"`
	Kafka KafkaConfig `yaml:"kafka"`

	Lock   LockConfig   `yaml:"lock"`
	Events EventsConfig `yaml:"events"`
	Auth   AuthConfig   `yaml:"auth"`
	HTTP   HTTPConfig   `yaml:"http"`

	PaymentKeySecret string `yaml:"payment_key_secret"`

	Log LogConfig `yaml:"log"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig with an empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// KafkaConfig with no brokers disables Kafka.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LockConfig struct {
	TTL  time.Duration `yaml:"ttl"`
	Wait time.Duration `yaml:"wait"`
}

type EventsConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	AdminName     string        `yaml:"admin_name"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

type HTTPConfig struct {
	CORSOrigin      string        `yaml:"cors_origin"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":50051",
		Store:    StoreMemory,
		MySQL: MySQLConfig{
			DSN:             "root:root@tcp(localhost:3306)/inventory?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{PoolSize: 100},
		Kafka: KafkaConfig{Topic: "inventory-events"},
		Lock: LockConfig{
			TTL:  10 * time.Second,
			Wait: 5 * time.Second,
		},
		Events: EventsConfig{QueueSize: 10000, Workers: 4},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			CORSOrigin:      "http://localhost:3000",
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getEnv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.Store = getEnv("STORE", cfg.Store)
	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AdminName = getEnv("ADMIN_NAME", cfg.Auth.AdminName)
	cfg.Auth.AdminEmail = getEnv("ADMIN_EMAIL", cfg.Auth.AdminEmail)
	cfg.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	cfg.HTTP.CORSOrigin = getEnv("CORS_ORIGIN", cfg.HTTP.CORSOrigin)
	cfg.PaymentKeySecret = getEnv("PAYMENT_KEY_SECRET", cfg.PaymentKeySecret)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	var err error
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.Events.Workers, err = getEnvInt("EVENT_WORKERS", cfg.Events.Workers); err != nil {
		return fmt.Errorf("invalid EVENT_WORKERS: %w", err)
	}
	if cfg.Events.QueueSize, err = getEnvInt("EVENT_QUEUE_SIZE", cfg.Events.QueueSize); err != nil {
		return fmt.Errorf("invalid EVENT_QUEUE_SIZE: %w", err)
	}
	if cfg.HTTP.LoginRateLimit, err = getEnvInt("LOGIN_RATE_LIMIT", cfg.HTTP.LoginRateLimit); err != nil {
		return fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.Auth.TokenTTL, err = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL); err != nil {
		return fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.Lock.Wait, err = getEnvDuration("LOCK_WAIT", cfg.Lock.Wait); err != nil {
		return fmt.Errorf("invalid LOCK_WAIT: %w", err)
	}
	if cfg.Auth.CookieSecure, err = getEnvBool("COOKIE_SECURE", cfg.Auth.CookieSecure); err != nil {
		return fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	if cfg.Log.Development, err = getEnvBool("LOG_DEVELOPMENT", cfg.Log.Development); err != nil {
		return fmt.Errorf("invalid LOG_DEVELOPMENT: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMySQL:
		if c.MySQL.DSN == "" {
			errs = append(errs, errors.New("mysql.dsn must not be empty"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreMySQL, StoreMemory, c.Store))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret must not be empty"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be > 0"))
	}
	if c.Lock.Wait <= 0 || c.Lock.TTL <= 0 {
		errs = append(errs, errors.New("lock.ttl and lock.wait must be > 0"))
	}
	if c.Events.Workers <= 0 || c.Events.QueueSize <= 0 {
		errs = append(errs, errors.New("events.workers and events.queue_size must be > 0"))
	}
	if c.HTTP.LoginRateLimit <= 0 || c.HTTP.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("http.login_rate_limit and http.login_rate_window must be > 0"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic must not be empty when brokers are set"))
	}
	if c.Auth.AdminEmail != "" && c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("auth.admin_password must be set with auth.admin_email"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
