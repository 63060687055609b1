package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the merged service configuration: config.yaml overlaid
// with environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Detector  DetectorConfig  `yaml:"detector"`

	// APIKey guards the mutating and metrics routes. Env-only
	// (TRAINER_API_KEY); empty means the API is open.
	APIKey string `yaml:"-"`
}

type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"` // "local" or "s3"
	LocalPath  string `yaml:"local_path"`
	ModelsPath string `yaml:"models_path"`
	S3Bucket   string `yaml:"s3_bucket"`
}

type SchedulerConfig struct {
	ScrapeIntervalHours int `yaml:"scrape_interval_hours"`
	TrainIntervalDays   int `yaml:"train_interval_days"`
}

type ScrapeConfig struct {
	LimitPerSource int `yaml:"limit_per_source"`
	PacingMS       int `yaml:"pacing_ms"`
}

type DetectorConfig struct {
	Endpoint string `yaml:"endpoint"`
	Enabled  bool   `yaml:"enabled"`
}

// Load reads the YAML config at path and applies environment
// overrides. A .env file in the working directory is loaded first if
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8001
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Scheduler.ScrapeIntervalHours == 0 {
		c.Scheduler.ScrapeIntervalHours = 6
	}
	if c.Scheduler.TrainIntervalDays == 0 {
		c.Scheduler.TrainIntervalDays = 1
	}
	if c.Scrape.LimitPerSource == 0 {
		c.Scrape.LimitPerSource = 25
	}
	if c.Scrape.PacingMS == 0 {
		c.Scrape.PacingMS = 500
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("SCRAPE_EVERY_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scheduler.ScrapeIntervalHours = n
		}
	}
	if v := os.Getenv("TRAIN_EVERY_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scheduler.TrainIntervalDays = n
		}
	}
	if v := os.Getenv("DETECTOR_ENDPOINT"); v != "" {
		c.Detector.Endpoint = v
	}
	c.APIKey = os.Getenv("TRAINER_API_KEY")
}

// SourcesConfig lists the external image sources and their per-source
// query settings.
type SourcesConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

type SourceConfig struct {
	Name          string   `yaml:"name"`
	Enabled       *bool    `yaml:"enabled"`
	Queries       []string `yaml:"queries"`
	LimitPerQuery int      `yaml:"limit_per_query"`

	// Reddit-only settings.
	Subreddits []string `yaml:"subreddits"`
	MinScore   int      `yaml:"min_score"`
	MaxAgeDays int      `yaml:"max_age_days"`
}

// IsEnabled defaults to true when the field is omitted.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadSources reads sources.yaml.
func LoadSources(path string) (*SourcesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var cfg SourcesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}
	return &cfg, nil
}
