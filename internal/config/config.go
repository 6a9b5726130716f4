// Package config loads deepread's settings from deepread.yaml, .env and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/deepread/internal/llm"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "deepread.yaml"

// Config is the full service configuration.
type Config struct {
	LLM      llm.Config     `yaml:"llm"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Practice PracticeConfig `yaml:"practice"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// AuthConfig holds the Supabase project's JWT settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Audience  string `yaml:"audience"`
}

// PostgresConfig points at the Supabase database. An empty DSN keeps
// practice responses in the local store only.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the shared concept cache. An empty Addr falls back
// to an in-process cache.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

type PracticeConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LLM: llm.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":3000",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   90 * time.Second,
		},
		Auth: AuthConfig{Audience: "authenticated"},
		Redis: RedisConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Practice: PracticeConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads .env (if present), then path (if present), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.ApplyEnv()
	if c.LLM.Validate() != nil {
		if discovered, ok := llm.DiscoverConfig(); ok {
			discovered.Retry = c.LLM.Retry
			discovered.Timeout = c.LLM.Timeout
			c.LLM = discovered
		}
	}

	// PORT is what the hosting platforms set.
	if p := os.Getenv("PORT"); p != "" {
		c.Server.Addr = ":" + p
	}
	setString(&c.Server.Addr, "DEEPREAD_ADDR")
	if o := os.Getenv("DEEPREAD_ALLOWED_ORIGINS"); o != "" {
		c.Server.AllowedOrigins = splitList(o)
	}
	setString(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET", "DEEPREAD_JWT_SECRET")
	setString(&c.Postgres.DSN, "DATABASE_URL", "DEEPREAD_POSTGRES_DSN")
	setString(&c.Redis.Addr, "REDIS_URL", "DEEPREAD_REDIS_ADDR")
	setString(&c.Log.Level, "DEEPREAD_LOG_LEVEL")
	setDuration(&c.Practice.IdleTimeout, "DEEPREAD_PRACTICE_IDLE_TIMEOUT")
}

// Validate reports settings that make serve unusable.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Practice.IdleTimeout <= 0 {
		errs = append(errs, errors.New("practice.idle_timeout must be positive"))
	}
	if c.Practice.SweepInterval <= 0 {
		errs = append(errs, errors.New("practice.sweep_interval must be positive"))
	}
	return errors.Join(errs...)
}

// setString assigns the last set variable among names.
func setString(dst *string, names ...string) {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			*dst = v
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
