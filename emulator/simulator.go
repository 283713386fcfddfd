// Package emulator simulates a fleet of Masimo Radius-7 pulse oximeters.
// Each device produces a random-walk vitals stream around a per-device
// baseline, so a restarted emulator picks up near where the device left
// off and no two devices look alike.
package emulator

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Telemetry is one vitals sample.
type Telemetry struct {
	// SpO2 is oxygen saturation in percent, one decimal place
	SpO2 float64 `json:"spo2"`

	// PR is pulse rate in beats per minute
	PR int `json:"pr"`

	// PI is the perfusion index, two decimal places
	PI float64 `json:"pi"`

	// PVI is the pleth variability index
	PVI int `json:"pvi"`

	// SpHb is total hemoglobin in g/dL, one decimal place
	SpHb float64 `json:"sphb"`

	// SignalIQ is the signal quality indicator, 90-100
	SignalIQ int `json:"signal_iq"`
}

// Reading is the wire payload for one device sample.
type Reading struct {
	DeviceID  string    `json:"device_id"`
	Timestamp string    `json:"timestamp"`
	Telemetry Telemetry `json:"telemetry"`
}

// Simulator models a single device. Not safe for concurrent use; each
// device gets its own simulator and its own random source.
type Simulator struct {
	deviceID string
	rng      *rand.Rand

	spo2 float64
	pr   float64
	pi   float64
	pvi  float64
}

// baselineSeed derives a stable small seed from the device id.
func baselineSeed(deviceID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(deviceID))
	return int64(h.Sum64() % 1000) //nolint:gosec // Simulation seed, not security
}

// NewSimulator creates a simulator with a deterministic per-device
// baseline. The walk itself stays random across runs.
func NewSimulator(deviceID string) *Simulator {
	base := rand.New(rand.NewSource(baselineSeed(deviceID))) //nolint:gosec // Simulation only

	s := &Simulator{
		deviceID: deviceID,
		spo2:     95.0 + base.Float64()*4,
		pr:       65.0 + base.Float64()*20,
		pi:       2.5 + base.Float64()*2,
		pvi:      10.0 + base.Float64()*8,
	}
	s.rng = rand.New(rand.NewSource(time.Now().UnixNano() ^ baselineSeed(deviceID))) //nolint:gosec // Simulation only
	return s
}

// DeviceID returns the simulated device's id.
func (s *Simulator) DeviceID() string {
	return s.deviceID
}

// uniform returns a random value in [lo, hi).
func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round fixes a value to the given decimal places.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Next advances the random walk one step and returns the reading taken
// at the given time.
func (s *Simulator) Next(at time.Time) Reading {
	s.spo2 = clamp(s.spo2+s.uniform(-0.5, 0.5), 88, 100)
	s.pr = clamp(s.pr+s.uniform(-2, 2), 50, 140)
	s.pi = clamp(s.pi+s.uniform(-0.1, 0.1), 0.5, 10)
	s.pvi = clamp(s.pvi+s.uniform(-1, 1), 5, 30)

	return Reading{
		DeviceID:  s.deviceID,
		Timestamp: at.UTC().Format(time.RFC3339),
		Telemetry: Telemetry{
			SpO2:     round(s.spo2, 1),
			PR:       int(s.pr),
			PI:       round(s.pi, 2),
			PVI:      int(s.pvi),
			SpHb:     round(12.5+s.uniform(-1, 1), 1),
			SignalIQ: 90 + s.rng.Intn(11),
		},
	}
}
