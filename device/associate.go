package device

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/loader/registry"
)

// Putter is the slice of the FHIR client the associator needs.
type Putter interface {
	PutResource(ctx context.Context, resourceType, id string, resource map[string]any) error
}

// Link pairs a patient with the association metadata to record.
type Link struct {
	PatientID   string
	PatientName string
}

// Associator assigns inventory devices to patients in order: the first
// patient gets the first device, and so on.
type Associator struct {
	devices []registry.DeviceInfo
	put     Putter
	log     zerolog.Logger

	// now is stubbed in tests
	now func() time.Time
}

// NewAssociator creates an associator over the given inventory.
func NewAssociator(devices []registry.DeviceInfo, put Putter, log zerolog.Logger) *Associator {
	return &Associator{devices: devices, put: put, log: log, now: time.Now}
}

// Provision uploads Device resources for the first count inventory units.
// Individual failures are logged and counted, not fatal.
func (a *Associator) Provision(ctx context.Context, count int) (created, failed int) {
	devices := a.devices
	if count >= 0 && count < len(devices) {
		devices = devices[:count]
	}

	for _, info := range devices {
		if ctx.Err() != nil {
			return created, failed
		}
		if err := a.put.PutResource(ctx, "Device", info.ID, Resource(info)); err != nil {
			a.log.Error().Err(err).Str("device", info.ID).Msg("device upload failed")
			failed++
			continue
		}
		created++
	}

	a.log.Info().Int("created", created).Int("failed", failed).Msg("device provisioning complete")
	return created, failed
}

// Associate links devices to patients pairwise. Patients beyond the
// inventory size are left unlinked.
func (a *Associator) Associate(ctx context.Context, patients []Link) (created, failed int) {
	n := len(patients)
	if n > len(a.devices) {
		n = len(a.devices)
	}
	startDate := a.now().UTC().Format("2006-01-02")

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return created, failed
		}
		info := a.devices[i]
		assoc := Association(info.ID, "Patient/"+patients[i].PatientID, patients[i].PatientName, startDate)

		if err := a.put.PutResource(ctx, "Basic", AssociationID(info.ID), assoc); err != nil {
			a.log.Error().Err(err).Str("device", info.ID).Str("patient", patients[i].PatientID).
				Msg("device association failed")
			failed++
			continue
		}
		created++
	}

	a.log.Info().Int("created", created).Int("failed", failed).Msg("device association complete")
	return created, failed
}
