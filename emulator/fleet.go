package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DeviceIDs generates the fleet's device ids, matching the ids of the
// provisioned Device resources.
func DeviceIDs(count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("MASIMO-RADIUS7-%04d", i))
	}
	return ids
}

// Fleet drives one simulator per device and ships each cycle's readings
// to a producer as a single batch.
type Fleet struct {
	sims     []*Simulator
	producer Producer
	interval time.Duration
	log      zerolog.Logger

	// maxBatchEvents splits a cycle into multiple sends when positive
	maxBatchEvents int
}

// FleetOption configures the Fleet.
type FleetOption func(*Fleet)

// WithInterval sets the cycle interval. Default one second.
func WithInterval(d time.Duration) FleetOption {
	return func(f *Fleet) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithMaxBatchEvents splits cycles into sends of at most n events.
func WithMaxBatchEvents(n int) FleetOption {
	return func(f *Fleet) {
		f.maxBatchEvents = n
	}
}

// WithFleetLogger sets the fleet logger.
func WithFleetLogger(log zerolog.Logger) FleetOption {
	return func(f *Fleet) {
		f.log = log
	}
}

// NewFleet creates simulators for count devices.
func NewFleet(count int, producer Producer, opts ...FleetOption) *Fleet {
	f := &Fleet{
		producer: producer,
		interval: time.Second,
		log:      zerolog.Nop(),
	}
	for _, id := range DeviceIDs(count) {
		f.sims = append(f.sims, NewSimulator(id))
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cycle takes one reading per device and sends them. Returns the number
// of events shipped.
func (f *Fleet) Cycle(ctx context.Context) (int, error) {
	now := time.Now()
	events := make([][]byte, 0, len(f.sims))
	for _, sim := range f.sims {
		data, err := json.Marshal(sim.Next(now))
		if err != nil {
			return 0, fmt.Errorf("encoding reading for %s: %w", sim.DeviceID(), err)
		}
		events = append(events, data)
	}

	if f.maxBatchEvents <= 0 {
		if err := f.producer.Send(ctx, events); err != nil {
			return 0, err
		}
		return len(events), nil
	}

	for start := 0; start < len(events); start += f.maxBatchEvents {
		end := start + f.maxBatchEvents
		if end > len(events) {
			end = len(events)
		}
		if err := f.producer.Send(ctx, events[start:end]); err != nil {
			return start, err
		}
	}
	return len(events), nil
}

// Run cycles until the context is cancelled. Every device reports once
// per interval.
func (f *Fleet) Run(ctx context.Context) error {
	f.log.Info().Int("devices", len(f.sims)).Dur("interval", f.interval).
		Msg("starting telemetry loop")

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			f.log.Info().Int("cycles", cycle).Msg("telemetry loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := f.Cycle(ctx); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		cycle++
		if cycle%10 == 0 {
			f.log.Info().Int("cycle", cycle).Int("devices", len(f.sims)).
				Msg("telemetry sent")
		}
	}
}
