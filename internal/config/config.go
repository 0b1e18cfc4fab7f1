package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Store  StoreConfig  `mapstructure:"store" validate:"required"`
	Jobs   JobsConfig   `mapstructure:"jobs" validate:"required"`
	Render RenderConfig `mapstructure:"render" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig selects and configures the persistence store backing the
// job system.
type StoreConfig struct {
	// Driver is one of "redis", "postgres" or "memory". The memory
	// driver keeps the service functional without external durability;
	// queue contents then do not survive a restart.
	Driver string `mapstructure:"driver" validate:"required,oneof=redis postgres memory"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisUsername string `mapstructure:"redis_username"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	PostgresURL string `mapstructure:"postgres_url" validate:"required_if=Driver postgres"`
}

// JobsConfig contains the job system tunables.
type JobsConfig struct {
	WorkerCount        int `mapstructure:"worker_count" validate:"required,gt=0"`
	MaxConcurrentJobs  int `mapstructure:"max_concurrent_jobs" validate:"required,gt=0"`
	MaxQueueSize       int `mapstructure:"max_queue_size" validate:"required,gt=0"`
	MaxRetries         int `mapstructure:"max_retries" validate:"required,gt=0"`
	RetryPriorityBoost int `mapstructure:"retry_priority_boost" validate:"required,gt=0"`
	SchedulerTickMs    int `mapstructure:"scheduler_tick_ms" validate:"required,gt=0"`
}

// SchedulerTick returns the tick interval as a duration.
func (j JobsConfig) SchedulerTick() time.Duration {
	return time.Duration(j.SchedulerTickMs) * time.Millisecond
}

// RenderConfig contains settings for the render collaborator.
type RenderConfig struct {
	// OutputDir is where the local renderer writes generated reports.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}
