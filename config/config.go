// Package config loads loader configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	fl "github.com/gofhir/loader"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	FHIRServiceURL string `mapstructure:"FHIR_SERVICE_URL"`
	AuthToken      string `mapstructure:"FHIR_AUTH_TOKEN"`

	SourceDir     string `mapstructure:"SOURCE_DIR"`
	ContainerName string `mapstructure:"CONTAINER_NAME"`

	BatchSize        int  `mapstructure:"BATCH_SIZE"`
	MaxBundleEntries int  `mapstructure:"MAX_BUNDLE_ENTRIES"`
	WorkerCount      int  `mapstructure:"WORKER_COUNT"`
	DryRun           bool `mapstructure:"DRY_RUN"`

	DeviceCount        int    `mapstructure:"DEVICE_COUNT"`
	MaxQualifying      int    `mapstructure:"MAX_QUALIFYING_PATIENTS"`
	DeviceRegistryPath string `mapstructure:"DEVICE_REGISTRY_PATH"`
	ProviderBundlePath string `mapstructure:"PROVIDER_BUNDLE_PATH"`

	ListRetries         int `mapstructure:"LIST_RETRIES"`
	ListIntervalSecs    int `mapstructure:"LIST_INTERVAL_SECONDS"`
	SubmitRetries       int `mapstructure:"SUBMIT_RETRIES"`
	SubmitBackoffSecs   int `mapstructure:"SUBMIT_BACKOFF_SECONDS"`
	EmulatorIntervalSec int `mapstructure:"EMULATOR_INTERVAL_SECONDS"`
	EmulatorMaxBatch    int `mapstructure:"EMULATOR_MAX_BATCH_EVENTS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	defaults := fl.DefaultOptions()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SOURCE_DIR", "./output/fhir")
	v.SetDefault("CONTAINER_NAME", "fhir-bundles")
	v.SetDefault("BATCH_SIZE", defaults.BatchSize)
	v.SetDefault("MAX_BUNDLE_ENTRIES", defaults.EntryCeiling)
	v.SetDefault("WORKER_COUNT", defaults.WorkerCount)
	v.SetDefault("DEVICE_COUNT", defaults.DeviceCount)
	v.SetDefault("MAX_QUALIFYING_PATIENTS", defaults.MaxQualifying)
	v.SetDefault("LIST_RETRIES", defaults.ListRetries)
	v.SetDefault("LIST_INTERVAL_SECONDS", int(defaults.ListInterval.Seconds()))
	v.SetDefault("SUBMIT_RETRIES", defaults.SubmitRetries)
	v.SetDefault("SUBMIT_BACKOFF_SECONDS", int(defaults.SubmitBackoff.Seconds()))
	v.SetDefault("EMULATOR_INTERVAL_SECONDS", 30)
	v.SetDefault("EMULATOR_MAX_BATCH_EVENTS", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("FHIR_SERVICE_URL")
	v.BindEnv("FHIR_AUTH_TOKEN")
	v.BindEnv("SOURCE_DIR")
	v.BindEnv("CONTAINER_NAME")
	v.BindEnv("BATCH_SIZE")
	v.BindEnv("MAX_BUNDLE_ENTRIES")
	v.BindEnv("WORKER_COUNT")
	v.BindEnv("DRY_RUN")
	v.BindEnv("DEVICE_COUNT")
	v.BindEnv("MAX_QUALIFYING_PATIENTS")
	v.BindEnv("DEVICE_REGISTRY_PATH")
	v.BindEnv("PROVIDER_BUNDLE_PATH")
	v.BindEnv("LIST_RETRIES")
	v.BindEnv("LIST_INTERVAL_SECONDS")
	v.BindEnv("SUBMIT_RETRIES")
	v.BindEnv("SUBMIT_BACKOFF_SECONDS")
	v.BindEnv("EMULATOR_INTERVAL_SECONDS")
	v.BindEnv("EMULATOR_MAX_BATCH_EVENTS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.MaxBundleEntries > fl.HardEntryLimit {
		return fmt.Errorf("MAX_BUNDLE_ENTRIES %d exceeds the store's hard limit of %d",
			c.MaxBundleEntries, fl.HardEntryLimit)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	return nil
}

// RequireServiceURL fails when no FHIR endpoint is configured. Dry runs
// are exempt since nothing reaches the wire.
func (c *Config) RequireServiceURL() error {
	if c.FHIRServiceURL == "" && !c.DryRun {
		return fmt.Errorf("FHIR_SERVICE_URL is required")
	}
	return nil
}

// Options translates the configuration into engine options.
func (c *Config) Options() []fl.Option {
	return []fl.Option{
		fl.WithBatchSize(c.BatchSize),
		fl.WithEntryCeiling(c.MaxBundleEntries),
		fl.WithDryRun(c.DryRun),
		fl.WithMaxQualifying(c.MaxQualifying),
		fl.WithDeviceCount(c.DeviceCount),
		fl.WithWorkerCount(c.WorkerCount),
		fl.WithListRetry(c.ListRetries, time.Duration(c.ListIntervalSecs)*time.Second),
		fl.WithSubmitRetry(c.SubmitRetries, time.Duration(c.SubmitBackoffSecs)*time.Second),
	}
}
