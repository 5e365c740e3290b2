// config - источник загрузки конфигурации шлюза.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Backend  BackendConfig  `yaml:"backend"`
	Identity IdentityConfig `yaml:"identity"`
	Session  SessionConfig  `yaml:"session"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Security SecurityConfig `yaml:"security"`
}

// TimeoutConfig — таймаут сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный REST-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — отдельный HTTP для Prometheus.
type MetricsConfig struct {
	Host string `yaml:"host"   env:"METRICS_HOST"   env-default:"0.0.0.0"`
	Port string `yaml:"port"   env:"METRICS_PORT"   env-default:"50085"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// BackendConfig — защищённый бэкенд. BaseURL — REST, GRPCAddr — опциональный gRPC.
type BackendConfig struct {
	BaseURL      string `yaml:"base_url"       env:"BACKEND_BASE_URL"       env-default:"http://127.0.0.1:8081"`
	GRPCAddr     string `yaml:"grpc_addr"      env:"BACKEND_GRPC_ADDR"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env:"BACKEND_MAX_BODY_BYTES" env-default:"10485760"`
}

// IdentityConfig — identity-сервис, выдающий и обновляющий пары токенов.
type IdentityConfig struct {
	BaseURL     string `yaml:"base_url"     env:"IDENTITY_BASE_URL"     env-default:"http://127.0.0.1:8082"`
	LoginPath   string `yaml:"login_path"   env:"IDENTITY_LOGIN_PATH"   env-default:"/auth/login"`
	RefreshPath string `yaml:"refresh_path" env:"IDENTITY_REFRESH_PATH" env-default:"/auth/refresh"`
	RevokePath  string `yaml:"revoke_path"  env:"IDENTITY_REVOKE_PATH"  env-default:"/auth/revoke"`
}

// Варианты хранения credential «at rest».
const (
	PersistMemory   = "memory"
	PersistFile     = "file"
	PersistRedis    = "redis"
	PersistPostgres = "postgres"
)

// SessionConfig — параметры цикла обновления и персистентности.
type SessionConfig struct {
	RefreshTimeout  time.Duration `yaml:"refresh_timeout"  env:"SESSION_REFRESH_TIMEOUT"  env-default:"10s"`
	ExpiryThreshold time.Duration `yaml:"expiry_threshold" env:"SESSION_EXPIRY_THRESHOLD" env-default:"0s"`

	Persist     string `yaml:"persist"      env:"SESSION_PERSIST"      env-default:"memory"`
	FilePath    string `yaml:"file_path"    env:"SESSION_FILE_PATH"    env-default:"./session.cred"`
	RedisURL    string `yaml:"redis_url"    env:"SESSION_REDIS_URL"`
	PostgresURL string `yaml:"postgres_url" env:"SESSION_POSTGRES_URL"`
	Key         string `yaml:"key"          env:"SESSION_KEY"          env-default:"gateway:session"`
}

// SecurityConfig — защита REST-поверхности шлюза. Пустой APIKey — без проверки.
type SecurityConfig struct {
	APIKey string `yaml:"api_key" env:"SECURITY_API_KEY"`
}

// Validate проверяет значения, которые нельзя выразить дефолтами.
func (c *Config) Validate() error {
	switch c.Session.Persist {
	case PersistMemory:
	case PersistFile:
		if c.Session.FilePath == "" {
			return fmt.Errorf("session.file_path is required for persist=file")
		}
	case PersistRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session.redis_url is required for persist=redis")
		}
	case PersistPostgres:
		if c.Session.PostgresURL == "" {
			return fmt.Errorf("session.postgres_url is required for persist=postgres")
		}
	default:
		return fmt.Errorf("unknown session.persist %q", c.Session.Persist)
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if c.Identity.BaseURL == "" {
		return fmt.Errorf("identity.base_url is required")
	}

	if c.Session.ExpiryThreshold < 0 {
		return fmt.Errorf("session.expiry_threshold must be >= 0")
	}

	return nil
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
