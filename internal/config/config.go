package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// WorkerConfig holds the process-wide scheduler settings.
type WorkerConfig struct {
	PollInterval        time.Duration `env:"WORKER_POLL_INTERVAL,default=5s"`
	RetryLimit          int           `env:"WORKER_RETRY_LIMIT,default=3"`
	DefaultJobDelay     time.Duration `env:"WORKER_DEFAULT_JOB_DELAY,default=30s"`
	RetryGrace          time.Duration `env:"WORKER_RETRY_GRACE,default=3s"`
	QueueAlarmThreshold int           `env:"WORKER_QUEUE_ALARM,default=300"`
	MaxConcurrency      int           `env:"WORKER_MAX_CONCURRENCY,default=0"`
	PendingLease        time.Duration `env:"WORKER_PENDING_LEASE,default=0s"`
	JanitorInterval     time.Duration `env:"WORKER_JANITOR_INTERVAL,default=30s"`
	OTelEnabled         bool          `env:"OTEL_ENABLED,default=false"`
}

// APIConfig holds the settings of the enqueue/admin HTTP API.
type APIConfig struct {
	Addr            string        `env:"API_ADDR,default=:8080"`
	RequestTimeout  time.Duration `env:"API_REQUEST_TIMEOUT,default=5s"`
	DefaultJobDelay time.Duration `env:"WORKER_DEFAULT_JOB_DELAY,default=30s"`
}

// to help with testing
var envProcess = envconfig.Process

func LoadWorkerConfig(ctx context.Context) (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envProcess(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := validateWorkerConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func LoadAPIConfig(ctx context.Context) (*APIConfig, error) {
	var cfg APIConfig
	if err := envProcess(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	var errors []string
	if strings.TrimSpace(cfg.Addr) == "" {
		errors = append(errors, "API_ADDR is required")
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, "API_REQUEST_TIMEOUT must be positive")
	}
	if cfg.DefaultJobDelay < 0 {
		errors = append(errors, "WORKER_DEFAULT_JOB_DELAY must be non-negative")
	}
	if len(errors) > 0 {
		return nil, fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return &cfg, nil
}

func validateWorkerConfig(cfg *WorkerConfig) error {
	var errors []string

	if cfg.PollInterval <= 0 {
		errors = append(errors, "WORKER_POLL_INTERVAL must be positive")
	}

	if cfg.RetryLimit < 1 {
		errors = append(errors, "WORKER_RETRY_LIMIT must be at least 1")
	}

	if cfg.DefaultJobDelay < 0 {
		errors = append(errors, "WORKER_DEFAULT_JOB_DELAY must be non-negative")
	}

	if cfg.RetryGrace < 0 {
		errors = append(errors, "WORKER_RETRY_GRACE must be non-negative")
	}

	if cfg.QueueAlarmThreshold < 0 {
		errors = append(errors, "WORKER_QUEUE_ALARM must be non-negative")
	}

	if cfg.MaxConcurrency < 0 {
		errors = append(errors, "WORKER_MAX_CONCURRENCY must be non-negative")
	}

	if cfg.PendingLease < 0 {
		errors = append(errors, "WORKER_PENDING_LEASE must be non-negative")
	}

	// The janitor only runs with a lease configured.
	if cfg.PendingLease > 0 && cfg.JanitorInterval <= 0 {
		errors = append(errors, "WORKER_JANITOR_INTERVAL must be positive when a pending lease is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}
