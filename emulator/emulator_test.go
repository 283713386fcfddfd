package emulator

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestBaselineDeterministic(t *testing.T) {
	a := NewSimulator("MASIMO-RADIUS7-0001")
	b := NewSimulator("MASIMO-RADIUS7-0001")
	if a.spo2 != b.spo2 || a.pr != b.pr || a.pi != b.pi || a.pvi != b.pvi {
		t.Error("same device id produced different baselines")
	}

	c := NewSimulator("MASIMO-RADIUS7-0002")
	if a.spo2 == c.spo2 && a.pr == c.pr && a.pi == c.pi && a.pvi == c.pvi {
		t.Error("different device ids produced identical baselines")
	}
}

func TestReadingRanges(t *testing.T) {
	s := NewSimulator("MASIMO-RADIUS7-0042")
	now := time.Now()

	for i := 0; i < 1000; i++ {
		r := s.Next(now)
		tel := r.Telemetry
		if tel.SpO2 < 88 || tel.SpO2 > 100 {
			t.Fatalf("spo2 = %v out of range", tel.SpO2)
		}
		if tel.PR < 50 || tel.PR > 140 {
			t.Fatalf("pr = %v out of range", tel.PR)
		}
		if tel.PI < 0.5 || tel.PI > 10 {
			t.Fatalf("pi = %v out of range", tel.PI)
		}
		if tel.PVI < 5 || tel.PVI > 30 {
			t.Fatalf("pvi = %v out of range", tel.PVI)
		}
		if tel.SpHb < 11.5 || tel.SpHb > 13.5 {
			t.Fatalf("sphb = %v out of range", tel.SpHb)
		}
		if tel.SignalIQ < 90 || tel.SignalIQ > 100 {
			t.Fatalf("signal_iq = %v out of range", tel.SignalIQ)
		}
	}
}

func TestReadingPrecision(t *testing.T) {
	s := NewSimulator("MASIMO-RADIUS7-0042")
	r := s.Next(time.Now())

	if got := r.Telemetry.SpO2 * 10; math.Abs(got-math.Round(got)) > 1e-9 {
		t.Errorf("spo2 %v not rounded to one decimal", r.Telemetry.SpO2)
	}
	if got := r.Telemetry.PI * 100; math.Abs(got-math.Round(got)) > 1e-9 {
		t.Errorf("pi %v not rounded to two decimals", r.Telemetry.PI)
	}
}

func TestReadingJSONShape(t *testing.T) {
	s := NewSimulator("MASIMO-RADIUS7-0003")
	at := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)

	data, err := json.Marshal(s.Next(at))
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["device_id"] != "MASIMO-RADIUS7-0003" {
		t.Errorf("device_id = %v", decoded["device_id"])
	}
	if decoded["timestamp"] != "2026-08-23T10:30:00Z" {
		t.Errorf("timestamp = %v", decoded["timestamp"])
	}

	tel, _ := decoded["telemetry"].(map[string]any)
	for _, field := range []string{"spo2", "pr", "pi", "pvi", "sphb", "signal_iq"} {
		if _, ok := tel[field]; !ok {
			t.Errorf("telemetry field %q missing", field)
		}
	}
}

func TestDeviceIDs(t *testing.T) {
	ids := DeviceIDs(3)
	want := []string{"MASIMO-RADIUS7-0001", "MASIMO-RADIUS7-0002", "MASIMO-RADIUS7-0003"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids", len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestFleetCycle(t *testing.T) {
	producer := &MemProducer{}
	fleet := NewFleet(5, producer)

	n, err := fleet.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("cycle shipped %d events, want 5", n)
	}
	if producer.EventCount() != 5 {
		t.Errorf("producer holds %d events, want 5", producer.EventCount())
	}

	var reading Reading
	if err := json.Unmarshal(producer.Batches()[0][0], &reading); err != nil {
		t.Fatal(err)
	}
	if reading.DeviceID != "MASIMO-RADIUS7-0001" {
		t.Errorf("first event from %q", reading.DeviceID)
	}
}

func TestFleetCycleSplitsBatches(t *testing.T) {
	producer := &MemProducer{MaxBatchEvents: 2}
	fleet := NewFleet(5, producer, WithMaxBatchEvents(2))

	if _, err := fleet.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(producer.Batches()); got != 3 {
		t.Errorf("got %d batches, want 3", got)
	}
	if producer.EventCount() != 5 {
		t.Errorf("producer holds %d events, want 5", producer.EventCount())
	}
}

func TestWriterProducer(t *testing.T) {
	var buf bytes.Buffer
	producer := NewWriterProducer(&buf)
	fleet := NewFleet(3, producer)

	if _, err := fleet.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	var reading Reading
	if err := json.Unmarshal(lines[0], &reading); err != nil {
		t.Fatal(err)
	}
	if reading.DeviceID != "MASIMO-RADIUS7-0001" {
		t.Errorf("first line from %q", reading.DeviceID)
	}
}

func TestFleetRunStopsOnCancel(t *testing.T) {
	producer := &MemProducer{}
	fleet := NewFleet(2, producer, WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := fleet.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run returned %v", err)
	}
	if producer.EventCount() == 0 {
		t.Error("no telemetry shipped before cancellation")
	}
}
