// Package device builds the FHIR resources for the pulse-oximeter fleet:
// Device resources for the inventory and Basic resources standing in for
// R5 DeviceAssociation, linking devices to monitored patients.
package device

import (
	"fmt"

	"github.com/gofhir/loader/registry"
)

// PulseOximeterSNOMED is the SNOMED CT device type code for a pulse
// oximeter.
const PulseOximeterSNOMED = "706767009"

// Resource builds the Device resource for one inventory unit.
func Resource(info registry.DeviceInfo) map[string]any {
	return map[string]any{
		"resourceType": "Device",
		"id":           info.ID,
		"identifier": []any{
			map[string]any{
				"system": "http://masimo.com/devices",
				"value":  info.ID,
			},
			map[string]any{
				"system": "http://masimo.com/serial-numbers",
				"value":  info.SerialNumber,
			},
		},
		"status":       "active",
		"manufacturer": info.Manufacturer,
		"deviceName": []any{
			map[string]any{
				"name": fmt.Sprintf("Masimo %s Pulse Oximeter", info.Model),
				"type": "user-friendly-name",
			},
		},
		"modelNumber":  info.Model,
		"serialNumber": info.SerialNumber,
		"type": map[string]any{
			"coding": []any{
				map[string]any{
					"system":  "http://snomed.info/sct",
					"code":    PulseOximeterSNOMED,
					"display": "Pulse oximeter",
				},
			},
			"text": "Pulse Oximeter",
		},
		"note": []any{
			map[string]any{
				"text": "Measures: SpO2 (oxygen saturation), heart rate, perfusion index",
			},
		},
		"safety": []any{
			map[string]any{
				"coding": []any{
					map[string]any{
						"system":  "urn:oid:2.16.840.1.113883.3.26.1.1",
						"code":    "C113844",
						"display": "Labeling does not contain latex warning",
					},
				},
			},
		},
	}
}

// AssociationID derives the fixed resource id for a device's association.
func AssociationID(deviceID string) string {
	return "device-assoc-" + deviceID
}

// Association builds the Basic resource linking a device to a patient.
// R4 has no DeviceAssociation resource, so the link is modeled as a Basic
// resource with the device, status and period carried in extensions.
// startDate is the ISO date the association takes effect.
func Association(deviceID, patientRef, patientName, startDate string) map[string]any {
	return map[string]any{
		"resourceType": "Basic",
		"id":           AssociationID(deviceID),
		"meta": map[string]any{
			"profile": []any{"http://example.org/StructureDefinition/device-association"},
		},
		"code": map[string]any{
			"coding": []any{
				map[string]any{
					"system":  "http://terminology.hl7.org/CodeSystem/basic-resource-type",
					"code":    "device-assoc",
					"display": "Device Association",
				},
			},
		},
		"subject": map[string]any{
			"reference": patientRef,
			"display":   patientName,
		},
		"extension": []any{
			map[string]any{
				"url": "http://example.org/StructureDefinition/associated-device",
				"valueReference": map[string]any{
					"reference": "Device/" + deviceID,
					"display":   fmt.Sprintf("Masimo Radius-7 (%s)", deviceID),
				},
			},
			map[string]any{
				"url":       "http://example.org/StructureDefinition/association-status",
				"valueCode": "active",
			},
			map[string]any{
				"url": "http://example.org/StructureDefinition/association-period",
				"valuePeriod": map[string]any{
					"start": startDate,
				},
			},
		},
	}
}
