package device

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gofhir/loader/registry"
)

func testDevice() registry.DeviceInfo {
	return registry.DeviceInfo{
		ID:           "MASIMO-RADIUS7-0007",
		SerialNumber: "SN-000007",
		Manufacturer: "Masimo",
		Model:        "Radius-7",
	}
}

func TestResource(t *testing.T) {
	r := Resource(testDevice())

	if r["resourceType"] != "Device" || r["id"] != "MASIMO-RADIUS7-0007" {
		t.Errorf("identity = %v/%v", r["resourceType"], r["id"])
	}
	if r["status"] != "active" || r["serialNumber"] != "SN-000007" {
		t.Errorf("status/serial = %v/%v", r["status"], r["serialNumber"])
	}

	ids := r["identifier"].([]any)
	if len(ids) != 2 {
		t.Fatalf("got %d identifiers", len(ids))
	}
	serial := ids[1].(map[string]any)
	if serial["system"] != "http://masimo.com/serial-numbers" || serial["value"] != "SN-000007" {
		t.Errorf("serial identifier = %v", serial)
	}

	typ := r["type"].(map[string]any)
	coding := typ["coding"].([]any)[0].(map[string]any)
	if coding["code"] != PulseOximeterSNOMED || coding["system"] != "http://snomed.info/sct" {
		t.Errorf("type coding = %v", coding)
	}

	name := r["deviceName"].([]any)[0].(map[string]any)
	if name["name"] != "Masimo Radius-7 Pulse Oximeter" {
		t.Errorf("deviceName = %v", name["name"])
	}

	if _, ok := r["safety"].([]any); !ok {
		t.Error("safety coding missing")
	}
}

func TestAssociation(t *testing.T) {
	a := Association("MASIMO-RADIUS7-0007", "Patient/p-42", "Ada Example", "2026-08-23")

	if a["id"] != "device-assoc-MASIMO-RADIUS7-0007" {
		t.Errorf("id = %v", a["id"])
	}

	subject := a["subject"].(map[string]any)
	if subject["reference"] != "Patient/p-42" || subject["display"] != "Ada Example" {
		t.Errorf("subject = %v", subject)
	}

	exts := a["extension"].([]any)
	if len(exts) != 3 {
		t.Fatalf("got %d extensions", len(exts))
	}

	devExt := exts[0].(map[string]any)
	devRef := devExt["valueReference"].(map[string]any)
	if devRef["reference"] != "Device/MASIMO-RADIUS7-0007" {
		t.Errorf("device reference = %v", devRef["reference"])
	}

	statusExt := exts[1].(map[string]any)
	if statusExt["valueCode"] != "active" {
		t.Errorf("status = %v", statusExt["valueCode"])
	}

	periodExt := exts[2].(map[string]any)
	period := periodExt["valuePeriod"].(map[string]any)
	if period["start"] != "2026-08-23" {
		t.Errorf("period start = %v", period["start"])
	}
}

// fakePutter records puts and can fail selected ids.
type fakePutter struct {
	puts    []string
	failIDs map[string]bool
}

func (f *fakePutter) PutResource(ctx context.Context, resourceType, id string, resource map[string]any) error {
	if f.failIDs[id] {
		return errors.New("server unavailable")
	}
	f.puts = append(f.puts, resourceType+"/"+id)
	return nil
}

func inventory(n int) []registry.DeviceInfo {
	devices := make([]registry.DeviceInfo, n)
	for i := range devices {
		devices[i] = registry.DeviceInfo{
			ID:    fmt.Sprintf("MASIMO-RADIUS7-%04d", i+1),
			Model: "Radius-7",
		}
	}
	return devices
}

func TestProvision(t *testing.T) {
	put := &fakePutter{failIDs: map[string]bool{"MASIMO-RADIUS7-0002": true}}
	a := NewAssociator(inventory(5), put, zerolog.Nop())

	created, failed := a.Provision(context.Background(), 3)
	if created != 2 || failed != 1 {
		t.Errorf("Provision = (%d, %d), want (2, 1)", created, failed)
	}
	if len(put.puts) != 2 || put.puts[0] != "Device/MASIMO-RADIUS7-0001" {
		t.Errorf("puts = %v", put.puts)
	}
}

func TestAssociate(t *testing.T) {
	put := &fakePutter{}
	a := NewAssociator(inventory(2), put, zerolog.Nop())

	patients := []Link{
		{PatientID: "p-1", PatientName: "One"},
		{PatientID: "p-2", PatientName: "Two"},
		{PatientID: "p-3", PatientName: "Three"}, // no device left
	}
	created, failed := a.Associate(context.Background(), patients)
	if created != 2 || failed != 0 {
		t.Errorf("Associate = (%d, %d), want (2, 0)", created, failed)
	}
	want := []string{
		"Basic/device-assoc-MASIMO-RADIUS7-0001",
		"Basic/device-assoc-MASIMO-RADIUS7-0002",
	}
	for i, w := range want {
		if put.puts[i] != w {
			t.Errorf("puts[%d] = %q, want %q", i, put.puts[i], w)
		}
	}
}

func TestAssociateCancellation(t *testing.T) {
	put := &fakePutter{}
	a := NewAssociator(inventory(10), put, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, _ := a.Associate(ctx, []Link{{PatientID: "p-1"}})
	if created != 0 {
		t.Errorf("created = %d after cancellation", created)
	}
}
