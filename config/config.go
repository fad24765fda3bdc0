package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. DORM_SERVER_PORT.
const EnvPrefix = "DORM"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Allocation AllocationConfig `yaml:"allocation"`
	Rotation   RotationConfig   `yaml:"rotation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" split_words:"true"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size" split_words:"true"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push delivery is skipped when the keys are empty; inbox rows are still written.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" envconfig:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" envconfig:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" split_words:"true"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" split_words:"true"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" split_words:"true"`
	AllowedOrigins  []string `yaml:"allowed_origins" split_words:"true"`
	ShutdownSeconds int      `yaml:"shutdown_seconds" split_words:"true"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" split_words:"true"`
	MaxIdleConns           int    `yaml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" split_words:"true"`
	LogLevel               string `yaml:"log_level" split_words:"true"` // silent, error, warn, info
}

// AllocationConfig holds the values stamped onto assignments created by a batch run.
type AllocationConfig struct {
	Semester      string `yaml:"semester"`
	AcademicYear  string `yaml:"academic_year" split_words:"true"`
	SystemActorID int64  `yaml:"system_actor_id" split_words:"true"`
}

// RotationConfig holds the supervisor rotation settings.
type RotationConfig struct {
	Timezone     string `yaml:"timezone"`
	MaxLeaveDays int    `yaml:"max_leave_days" split_words:"true"`
	MaxPerBlock  int    `yaml:"max_supervisors_per_block" envconfig:"MAX_SUPERVISORS_PER_BLOCK"`
	location     *time.Location
}

// Location returns the configured rotation timezone, UTC when unset.
func (r RotationConfig) Location() *time.Location {
	if r.location == nil {
		return time.UTC
	}
	return r.location
}

// SetTimezone loads the named IANA zone for the rotation calendar.
func (r *RotationConfig) SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load rotation timezone %q: %w", name, err)
	}
	r.Timezone = name
	r.location = loc
	return nil
}

// SchedulerConfig controls the optional periodic allocation runner.
type SchedulerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds" split_words:"true"`
	Interval        time.Duration `yaml:"-" ignored:"true"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the configuration from the given path and applies DORM_* environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, backed by in-memory sqlite.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"},
	}
	// Defaults never fail for the zero timezone.
	_ = cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.ShutdownSeconds <= 0 {
		cfg.Server.ShutdownSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Allocation.Semester == "" {
		cfg.Allocation.Semester = "Fall"
	}
	if cfg.Allocation.AcademicYear == "" {
		cfg.Allocation.AcademicYear = "2024-2025"
	}
	if cfg.Allocation.SystemActorID <= 0 {
		cfg.Allocation.SystemActorID = 1
	}

	if cfg.Rotation.MaxLeaveDays <= 0 {
		cfg.Rotation.MaxLeaveDays = 30
	}
	if cfg.Rotation.MaxPerBlock <= 0 {
		cfg.Rotation.MaxPerBlock = 3
	}
	if cfg.Rotation.Timezone != "" {
		if err := cfg.Rotation.SetTimezone(cfg.Rotation.Timezone); err != nil {
			return err
		}
	}

	if cfg.Scheduler.IntervalSeconds <= 0 {
		cfg.Scheduler.IntervalSeconds = 3600
	}
	cfg.Scheduler.Interval = time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}
