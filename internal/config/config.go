package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"openhours/internal/hours"
)

type Config struct {
	Source struct {
		URL            string   `yaml:"url"`
		APIKey         string   `yaml:"api_key"`
		FieldMask      string   `yaml:"field_mask"`
		File           string   `yaml:"file"`
		Name           string   `yaml:"name"`
		RefreshMinutes int      `yaml:"refresh_minutes"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		RatePerMinute  *float64 `yaml:"rate_per_minute"` // 0 disables rate limiting
	} `yaml:"source"`

	Schedule struct {
		UTCOffsetMinutes *int `yaml:"utc_offset_minutes"`
		EvaluateSeconds  int  `yaml:"evaluate_seconds"`
	} `yaml:"schedule"`

	Database struct {
		Path        string `yaml:"path"`
		KeepHistory int    `yaml:"keep_history"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// Load reads the YAML config at path. Variables from an optional .env next to
// the working directory are loaded first so ${ENV_VAR} placeholders resolve.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, expands environment placeholders and
// applies defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/openhours.db"
	}
	if c.Database.KeepHistory <= 0 {
		c.Database.KeepHistory = 30
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Source.Name == "" {
		c.Source.Name = "default"
	}
	if c.Source.RefreshMinutes <= 0 {
		c.Source.RefreshMinutes = 60
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = 10
	}
	if c.Source.RatePerMinute == nil {
		def := 6.0
		c.Source.RatePerMinute = &def
	}
	if c.Schedule.UTCOffsetMinutes == nil {
		def := hours.DefaultUTCOffsetMinutes
		c.Schedule.UTCOffsetMinutes = &def
	}
	if c.Schedule.EvaluateSeconds <= 0 {
		c.Schedule.EvaluateSeconds = 30
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Source.URL == "" && c.Source.File == "" {
		return fmt.Errorf("source.url or source.file is required")
	}
	if c.Source.URL != "" && c.Source.File != "" {
		return fmt.Errorf("source.url and source.file are mutually exclusive")
	}

	offset := *c.Schedule.UTCOffsetMinutes
	if offset < -14*60 || offset > 14*60 {
		return fmt.Errorf("schedule.utc_offset_minutes: %d out of range -840..840", offset)
	}

	for name, port := range map[string]int{
		"http.port":                    c.HTTP.Port,
		"monitoring.health_check_port": c.Monitoring.HealthCheckPort,
		"monitoring.prometheus_port":   c.Monitoring.PrometheusPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %d", name, port)
		}
	}

	if *c.Source.RatePerMinute < 0 {
		return fmt.Errorf("source.rate_per_minute cannot be negative")
	}

	if c.Redis.CacheTTLSeconds < 0 {
		return fmt.Errorf("redis.cache_ttl_seconds cannot be negative")
	}

	return nil
}

func (c *Config) UTCOffset() int {
	return *c.Schedule.UTCOffsetMinutes
}

func (c *Config) RateLimit() float64 {
	return *c.Source.RatePerMinute
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Source.RefreshMinutes) * time.Minute
}

func (c *Config) EvaluateInterval() time.Duration {
	return time.Duration(c.Schedule.EvaluateSeconds) * time.Second
}

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
