// Package eligibility decides which patients qualify for home monitoring.
// Classification inspects the Condition resources of a source bundle as
// generated, before any stubs or rewrites, so code systems and references
// are still in their original form.
package eligibility

import (
	"strings"
	"time"

	"github.com/gofhir/loader/bundle"
	"github.com/gofhir/loader/registry"
)

// PediatricAgeLimit is the exclusive upper age bound for the pediatric
// network.
const PediatricAgeLimit = 21

// Classifier matches bundles against the qualifying condition rules.
type Classifier struct {
	icd10  []registry.QualifyingCode
	snomed []registry.QualifyingCode
}

// NewClassifier builds a classifier from the device registry's code sets.
func NewClassifier(reg *registry.DeviceRegistry) *Classifier {
	return &Classifier{icd10: reg.ICD10Codes(), snomed: reg.SNOMEDCodes()}
}

// Classify reports whether any Condition in the bundle carries a
// qualifying code, and the display label of the first match. SNOMED codes
// match exactly; ICD-10 codes match by prefix to cover hierarchical
// children; codings without a system fall back to the ICD-10 prefix rules.
func (c *Classifier) Classify(doc map[string]any) (bool, string) {
	for _, e := range bundle.Entries(doc) {
		if e.ResourceType() != "Condition" {
			continue
		}
		if ok, label := c.matchCondition(e.Resource()); ok {
			return true, label
		}
	}
	return false, ""
}

func (c *Classifier) matchCondition(resource map[string]any) (bool, string) {
	code, _ := resource["code"].(map[string]any)
	codings, _ := code["coding"].([]any)

	for _, raw := range codings {
		coding, _ := raw.(map[string]any)
		if coding == nil {
			continue
		}
		value, _ := coding["code"].(string)
		if value == "" {
			continue
		}
		system, _ := coding["system"].(string)
		lower := strings.ToLower(system)

		switch {
		case strings.Contains(lower, "snomed"):
			for _, qc := range c.snomed {
				if value == qc.Code {
					return true, labelFor(qc, coding)
				}
			}
		case strings.Contains(lower, "icd"), system == "":
			for _, qc := range c.icd10 {
				if strings.HasPrefix(value, qc.Code) {
					return true, labelFor(qc, coding)
				}
			}
		}
	}
	return false, ""
}

// labelFor prefers the registry display, falling back to the coding's own.
func labelFor(qc registry.QualifyingCode, coding map[string]any) string {
	if qc.Display != "" {
		return qc.Display
	}
	display, _ := coding["display"].(string)
	return display
}

// Patient returns the first Patient resource in the bundle, or nil.
func Patient(doc map[string]any) map[string]any {
	for _, e := range bundle.Entries(doc) {
		if e.ResourceType() == "Patient" {
			return e.Resource()
		}
	}
	return nil
}

// ManagingOrgID returns the organization id from the first Encounter's
// serviceProvider reference, stripped to its last path segment.
func ManagingOrgID(doc map[string]any) string {
	for _, e := range bundle.Entries(doc) {
		if e.ResourceType() != "Encounter" {
			continue
		}
		sp, _ := e.Resource()["serviceProvider"].(map[string]any)
		ref, _ := sp["reference"].(string)
		if ref == "" {
			continue
		}
		if i := strings.LastIndex(ref, "/"); i >= 0 {
			return ref[i+1:]
		}
		return ref
	}
	return ""
}

// Age returns whole years since an ISO birth date, judged at now.
// Unparseable dates yield 0.
func Age(birthDate string, now time.Time) int {
	born, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0
	}
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IsPediatric reports whether a patient is under the pediatric age limit.
// Patients without a birth date are not pediatric.
func IsPediatric(patient map[string]any, now time.Time) bool {
	birthDate, _ := patient["birthDate"].(string)
	if birthDate == "" {
		return false
	}
	return Age(birthDate, now) < PediatricAgeLimit
}

// Gate applies the pediatric-network admission rule: a bundle whose
// managing organization is in the pediatric network is admitted only when
// its patient is pediatric. Bundles outside the network always pass.
func Gate(doc map[string]any, dir *registry.ProviderDirectory, now time.Time) bool {
	if !dir.IsPediatricNetwork(ManagingOrgID(doc)) {
		return true
	}
	patient := Patient(doc)
	return patient != nil && IsPediatric(patient, now)
}
