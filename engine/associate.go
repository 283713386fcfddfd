package engine

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gofhir/loader/device"
	"github.com/gofhir/loader/registry"
)

// Searcher is the slice of the FHIR client the standalone association
// pass needs beyond FHIRClient.
type Searcher interface {
	Search(ctx context.Context, resourceType string, params url.Values) (map[string]any, error)
}

// SearchClient combines searching with resource writes.
type SearchClient interface {
	Searcher
	PutResource(ctx context.Context, resourceType, id string, resource map[string]any) error
}

// FindQualifyingPatients queries the store for patients who already carry
// a qualifying condition, using one search per code with the subject
// included. Patients are deduplicated across codes and capped at max.
func FindQualifyingPatients(ctx context.Context, s Searcher, codes []registry.QualifyingCode, max int, log zerolog.Logger) ([]QualifyingPatient, error) {
	var patients []QualifyingPatient
	seen := make(map[string]bool)

	for _, qc := range codes {
		if max >= 0 && len(patients) >= max {
			break
		}

		doc, err := s.Search(ctx, "Condition", url.Values{
			"code":     {qc.Code},
			"_include": {"Condition:subject"},
			"_count":   {"50"},
		})
		if err != nil {
			log.Warn().Err(err).Str("code", qc.Code).Str("condition", qc.Display).
				Msg("condition search failed")
			continue
		}

		entries, _ := doc["entry"].([]any)
		matched := 0
		for _, raw := range entries {
			entry, _ := raw.(map[string]any)
			resource, _ := entry["resource"].(map[string]any)
			rt, _ := resource["resourceType"].(string)

			if rt == "Condition" {
				matched++
				continue
			}
			if rt != "Patient" {
				continue
			}

			id, _ := resource["id"].(string)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			patients = append(patients, QualifyingPatient{
				ID:        id,
				Name:      displayName(resource),
				BirthDate: birthDate(resource),
				Condition: qc.Display,
			})
			if max >= 0 && len(patients) >= max {
				break
			}
		}

		if matched > 0 {
			log.Info().Str("condition", qc.Display).Str("code", qc.Code).
				Int("conditions", matched).Msg("conditions found")
		}
	}

	log.Info().Int("patients", len(patients)).Msg("qualifying patient search complete")
	return patients, nil
}

// AssociateExisting runs the standalone association pass: search the
// store for qualifying patients and link inventory devices to them in
// order. Returns how many associations were created.
func AssociateExisting(ctx context.Context, c SearchClient, reg *registry.DeviceRegistry, max int, log zerolog.Logger) (int, error) {
	codes := reg.SNOMEDCodes()
	if len(codes) == 0 {
		codes = registry.DefaultQualifyingSNOMED()
	}

	patients, err := FindQualifyingPatients(ctx, c, codes, max, log)
	if err != nil {
		return 0, err
	}

	links := make([]device.Link, 0, len(patients))
	for _, qp := range patients {
		links = append(links, device.Link{PatientID: qp.PatientIDRef(), PatientName: qp.Name})
	}

	a := device.NewAssociator(reg.Devices(-1), c, log)
	created, _ := a.Associate(ctx, links)
	return created, nil
}

// PatientIDRef returns the bare patient id, tolerating ids that already
// carry a Patient/ prefix.
func (qp QualifyingPatient) PatientIDRef() string {
	return strings.TrimPrefix(qp.ID, "Patient/")
}
