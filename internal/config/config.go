package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Log struct {
		// Mode is "development" (console) or "production" (JSON).
		Mode string `yaml:"mode"`
		// File, when set, also writes logs to a rotating file.
		File string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Auth struct {
		Secret   string   `yaml:"secret"`
		TokenTTL string   `yaml:"tokenTTL"`
		Timeout  string   `yaml:"timeout"`
		Admins   []string `yaml:"admins"`
	} `yaml:"auth"`
	Scoring struct {
		Model          string `yaml:"model"`
		Keying         string `yaml:"keying"`
		AllowPartial   bool   `yaml:"allowPartial"`
		PersistAnswers bool   `yaml:"persistAnswers"`
		Rehydrate      bool   `yaml:"rehydrate"`
	} `yaml:"scoring"`
	Leaderboard struct {
		Limit    int  `yaml:"limit"`
		UseRedis bool `yaml:"useRedis"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path, after loading a .env file from the working directory
// if one exists. A missing config file yields defaults; environment variables win over both.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Auth.Admins = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	if c.Scoring.Model == "" {
		c.Scoring.Model = "weighted"
	}
	if c.Scoring.Keying == "" {
		c.Scoring.Keying = "quiz"
	}
	if c.Leaderboard.Limit == 0 {
		c.Leaderboard.Limit = 10
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret not configured (set auth.secret or JWT_SECRET)")
	}
	switch c.Scoring.Model {
	case "weighted", "percentage":
	default:
		return fmt.Errorf("unknown scoring model %q", c.Scoring.Model)
	}
	switch c.Scoring.Keying {
	case "quiz", "material":
	default:
		return fmt.Errorf("unknown score keying %q", c.Scoring.Keying)
	}
	switch c.Log.Mode {
	case "development", "production":
	default:
		return fmt.Errorf("unknown log mode %q", c.Log.Mode)
	}
	if c.Leaderboard.UseRedis && c.Redis.Addr == "" {
		return errors.New("leaderboard.useRedis requires redis.addr")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
