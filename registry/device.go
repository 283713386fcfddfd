// Package registry loads the static reference data the loader runs
// against: the pulse-oximeter device inventory with its qualifying
// condition codes, and the affiliated provider directory.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// DeviceInfo describes one physical device in the inventory.
type DeviceInfo struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serialNumber"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

// QualifyingCode is one condition code that qualifies a patient for home
// monitoring.
type QualifyingCode struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// DeviceRegistry is the device inventory plus the qualifying condition
// code sets.
type DeviceRegistry struct {
	DeviceList           []DeviceInfo `json:"devices"`
	QualifyingConditions struct {
		// Codes is the legacy single-list layout; treated as ICD-10.
		Codes  []QualifyingCode `json:"codes"`
		ICD10  []QualifyingCode `json:"icd10"`
		SNOMED []QualifyingCode `json:"snomed"`
	} `json:"qualifyingConditions"`
}

// LoadDeviceRegistry reads a device registry JSON file.
func LoadDeviceRegistry(path string) (*DeviceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device registry: %w", err)
	}

	var reg DeviceRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing device registry %s: %w", path, err)
	}
	return &reg, nil
}

// DefaultDeviceRegistry builds an inventory of count sequentially numbered
// Radius-7 units with the standard qualifying code sets. Used when no
// registry file is configured.
func DefaultDeviceRegistry(count int) *DeviceRegistry {
	reg := &DeviceRegistry{DeviceList: make([]DeviceInfo, 0, count)}
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("MASIMO-RADIUS7-%04d", i)
		reg.DeviceList = append(reg.DeviceList, DeviceInfo{
			ID:           id,
			SerialNumber: fmt.Sprintf("SN-%06d", i),
			Manufacturer: "Masimo",
			Model:        "Radius-7",
		})
	}
	reg.QualifyingConditions.SNOMED = DefaultQualifyingSNOMED()
	return reg
}

// DefaultQualifyingSNOMED lists the SNOMED codes Synthea emits for
// conditions that warrant pulse-oximetry monitoring.
func DefaultQualifyingSNOMED() []QualifyingCode {
	return []QualifyingCode{
		{Code: "195967001", Display: "Asthma"},
		{Code: "44054006", Display: "Type 2 diabetes mellitus"},
		{Code: "59621000", Display: "Essential hypertension"},
		{Code: "38341003", Display: "Hypertensive disorder"},
		{Code: "162864005", Display: "Body mass index 30+ - obesity"},
		{Code: "271825005", Display: "Respiratory distress"},
		{Code: "840539006", Display: "COVID-19"},
		{Code: "233604007", Display: "Pneumonia"},
		{Code: "13645005", Display: "Chronic obstructive lung disease"},
		{Code: "84114007", Display: "Heart failure"},
		{Code: "22298006", Display: "Myocardial infarction"},
		{Code: "399211009", Display: "History of myocardial infarction"},
		{Code: "53741008", Display: "Coronary arteriosclerosis"},
		{Code: "428007007", Display: "History of heart failure"},
	}
}

// Devices returns up to n devices from the inventory.
func (r *DeviceRegistry) Devices(n int) []DeviceInfo {
	if n < 0 || n > len(r.DeviceList) {
		n = len(r.DeviceList)
	}
	return r.DeviceList[:n]
}

// ICD10Codes returns the qualifying ICD-10 codes. The split layout takes
// precedence over the legacy flat list when both are present.
func (r *DeviceRegistry) ICD10Codes() []QualifyingCode {
	if len(r.QualifyingConditions.ICD10) > 0 {
		return r.QualifyingConditions.ICD10
	}
	return r.QualifyingConditions.Codes
}

// SNOMEDCodes returns the qualifying SNOMED codes.
func (r *DeviceRegistry) SNOMEDCodes() []QualifyingCode {
	return r.QualifyingConditions.SNOMED
}
