package fhirloader

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if o.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", o.BatchSize)
	}
	if o.EntryCeiling != 400 {
		t.Errorf("EntryCeiling = %d, want 400", o.EntryCeiling)
	}
	if o.WorkerCount != 1 {
		t.Errorf("WorkerCount = %d, want 1", o.WorkerCount)
	}
	if o.MaxQualifying != 100 {
		t.Errorf("MaxQualifying = %d, want 100", o.MaxQualifying)
	}
	if o.DeviceCount != 100 {
		t.Errorf("DeviceCount = %d, want 100", o.DeviceCount)
	}
	if o.ListRetries != 12 || o.ListInterval != 10*time.Second {
		t.Errorf("list retry = %d/%v, want 12/10s", o.ListRetries, o.ListInterval)
	}
	if !o.EnablePooling {
		t.Error("pooling should be enabled by default")
	}
}

func TestWithEntryCeiling(t *testing.T) {
	tests := []struct {
		name    string
		ceiling int
		want    int
	}{
		{"normal", 300, 300},
		{"at hard limit", 500, 500},
		{"above hard limit clamps", 900, 500},
		{"zero ignored", 0, 400},
		{"negative ignored", -1, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			WithEntryCeiling(tt.ceiling)(o)
			if o.EntryCeiling != tt.want {
				t.Errorf("EntryCeiling = %d, want %d", o.EntryCeiling, tt.want)
			}
		})
	}
}

func TestOptionApplication(t *testing.T) {
	o := DefaultOptions()
	opts := []Option{
		WithBatchSize(25),
		WithWorkerCount(4),
		WithMaxQualifying(10),
		WithDeviceCount(5),
		WithDryRun(true),
		WithSubmitRetry(8, 5*time.Second),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", o.BatchSize)
	}
	if o.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", o.WorkerCount)
	}
	if o.MaxQualifying != 10 {
		t.Errorf("MaxQualifying = %d, want 10", o.MaxQualifying)
	}
	if o.DeviceCount != 5 {
		t.Errorf("DeviceCount = %d, want 5", o.DeviceCount)
	}
	if !o.DryRun {
		t.Error("DryRun should be set")
	}
	if o.SubmitRetries != 8 || o.SubmitBackoff != 5*time.Second {
		t.Errorf("submit retry = %d/%v, want 8/5s", o.SubmitRetries, o.SubmitBackoff)
	}
}

func TestInvalidOptionValuesIgnored(t *testing.T) {
	o := DefaultOptions()
	WithBatchSize(0)(o)
	WithWorkerCount(-3)(o)
	WithListRetry(0, 0)(o)

	if o.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want default 50", o.BatchSize)
	}
	if o.WorkerCount != 1 {
		t.Errorf("WorkerCount = %d, want default 1", o.WorkerCount)
	}
	if o.ListRetries != 12 || o.ListInterval != 10*time.Second {
		t.Error("invalid list retry values should leave defaults")
	}
}

func TestPresets(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range FastOptions() {
		opt(o)
	}
	if o.EntryCeiling != HardEntryLimit {
		t.Errorf("fast preset ceiling = %d, want %d", o.EntryCeiling, HardEntryLimit)
	}
	if o.WorkerCount != 4 {
		t.Errorf("fast preset workers = %d, want 4", o.WorkerCount)
	}

	o = DefaultOptions()
	for _, opt := range DebugOptions() {
		opt(o)
	}
	if !o.DryRun {
		t.Error("debug preset should enable dry run")
	}
	if o.EnablePooling {
		t.Error("debug preset should disable pooling")
	}
}
