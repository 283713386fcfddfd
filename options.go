package fhirloader

import (
	"time"
)

// Option configures the loader engine.
type Option func(*Options)

// Options holds all configuration for the loader engine.
type Options struct {
	// Bundle handling
	BatchSize    int
	EntryCeiling int
	DryRun       bool

	// Eligibility and provisioning
	MaxQualifying int
	DeviceCount   int

	// Performance
	WorkerCount   int
	EnablePooling bool

	// Store retry behavior
	ListRetries   int
	ListInterval  time.Duration
	SubmitRetries int
	SubmitBackoff time.Duration
}

// HardEntryLimit is the store's absolute per-transaction entry limit.
// The configured ceiling may never exceed it.
const HardEntryLimit = 500

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		// Bundle handling defaults
		BatchSize:    50,
		EntryCeiling: 400,
		DryRun:       false,

		// Eligibility and provisioning defaults
		MaxQualifying: 100,
		DeviceCount:   100,

		// Performance defaults: sequential submission keeps per-bundle
		// sub-bundle ordering trivially correct
		WorkerCount:   1,
		EnablePooling: true,

		// Retry defaults
		ListRetries:   12,
		ListInterval:  10 * time.Second,
		SubmitRetries: 5,
		SubmitBackoff: 2 * time.Second,
	}
}

// --- Bundle Options ---

// WithBatchSize sets how many source objects are downloaded per batch.
func WithBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.BatchSize = size
		}
	}
}

// WithEntryCeiling sets the per-transaction entry ceiling.
// Values above the store's hard limit are clamped to it.
func WithEntryCeiling(ceiling int) Option {
	return func(o *Options) {
		if ceiling > 0 {
			if ceiling > HardEntryLimit {
				ceiling = HardEntryLimit
			}
			o.EntryCeiling = ceiling
		}
	}
}

// WithDryRun prepares bundles without submitting anything.
func WithDryRun(enable bool) Option {
	return func(o *Options) {
		o.DryRun = enable
	}
}

// --- Eligibility Options ---

// WithMaxQualifying caps how many qualifying patients are captured per run.
func WithMaxQualifying(max int) Option {
	return func(o *Options) {
		if max >= 0 {
			o.MaxQualifying = max
		}
	}
}

// WithDeviceCount sets how many devices are provisioned before loading.
func WithDeviceCount(count int) Option {
	return func(o *Options) {
		if count >= 0 {
			o.DeviceCount = count
		}
	}
}

// --- Performance Options ---

// WithWorkerCount sets the number of workers for cross-bundle parallelism.
// Sub-bundles of a single source bundle are always submitted in order.
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithPooling enables or disables result pooling.
// Pooling reduces GC pressure but requires calling Release() on results.
func WithPooling(enable bool) Option {
	return func(o *Options) {
		o.EnablePooling = enable
	}
}

// --- Retry Options ---

// WithListRetry configures the fixed-interval retry used when listing the
// source store fails with an authorization error.
func WithListRetry(attempts int, interval time.Duration) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.ListRetries = attempts
		}
		if interval > 0 {
			o.ListInterval = interval
		}
	}
}

// WithSubmitRetry configures the exponential backoff used when a
// transaction submission fails with a transient status.
func WithSubmitRetry(attempts int, initial time.Duration) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.SubmitRetries = attempts
		}
		if initial > 0 {
			o.SubmitBackoff = initial
		}
	}
}

// --- Presets ---

// FastOptions returns options suited to bulk initial loads.
func FastOptions() []Option {
	return []Option{
		WithBatchSize(100),
		WithEntryCeiling(HardEntryLimit),
		WithWorkerCount(4),
		WithPooling(true),
	}
}

// CautiousOptions returns options suited to first runs against a new store.
func CautiousOptions() []Option {
	return []Option{
		WithBatchSize(10),
		WithEntryCeiling(100),
		WithWorkerCount(1),
		WithSubmitRetry(8, 5*time.Second),
	}
}

// DebugOptions returns options useful for debugging.
func DebugOptions() []Option {
	return []Option{
		WithDryRun(true),
		WithPooling(false),
		WithWorkerCount(1),
	}
}
