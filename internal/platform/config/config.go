// Package config loads service configuration from an optional YAML file and
// applies environment overrides on top. Env always wins.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/storycut-backend/internal/platform/envutil"
)

type Config struct {
	LogMode string `yaml:"log_mode"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	GCS struct {
		Bucket          string `yaml:"bucket"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"gcs"`

	VisionAI struct {
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		Model          string        `yaml:"model"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxRetries     int           `yaml:"max_retries"`
	} `yaml:"visionai"`

	Match struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"match"`

	SceneIndex struct {
		StaleAfter time.Duration `yaml:"stale_after"`
	} `yaml:"scene_index"`
}

// Load reads the YAML file at path (optional, empty path or missing file is
// fine) and then applies env overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.LogMode = "development"
	cfg.Redis.Addr = "localhost:6379"
	cfg.VisionAI.BaseURL = "https://generativelanguage.googleapis.com"
	cfg.VisionAI.Model = "gemini-2.0-flash"
	cfg.VisionAI.RequestTimeout = 120 * time.Second
	cfg.VisionAI.MaxRetries = 3
	cfg.Match.Concurrency = 8
	cfg.SceneIndex.StaleAfter = 24 * time.Hour
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Postgres.DSN = envutil.String("POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.GCS.Bucket = envutil.String("GCS_BUCKET", cfg.GCS.Bucket)
	cfg.GCS.CredentialsFile = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCS.CredentialsFile)
	cfg.VisionAI.BaseURL = envutil.String("VISIONAI_BASE_URL", cfg.VisionAI.BaseURL)
	cfg.VisionAI.APIKey = envutil.String("VISIONAI_API_KEY", cfg.VisionAI.APIKey)
	cfg.VisionAI.Model = envutil.String("VISIONAI_MODEL", cfg.VisionAI.Model)
	cfg.VisionAI.RequestTimeout = envutil.Duration("VISIONAI_REQUEST_TIMEOUT", cfg.VisionAI.RequestTimeout)
	cfg.VisionAI.MaxRetries = envutil.Int("VISIONAI_MAX_RETRIES", cfg.VisionAI.MaxRetries)
	cfg.Match.Concurrency = envutil.Int("MATCH_CONCURRENCY", cfg.Match.Concurrency)
	cfg.SceneIndex.StaleAfter = envutil.Duration("SCENE_INDEX_STALE_AFTER", cfg.SceneIndex.StaleAfter)
}
