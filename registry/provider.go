package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gofhir/loader/bundle"
)

// DefaultPediatricOrgIDs are the pediatric-network organization ids;
// patients managed by these organizations must be under 21.
var DefaultPediatricOrgIDs = []string{
	"childrens-healthcare-atlanta",
	"choa-egleston",
	"choa-scottish-rite",
	"choa-hughes-spalding",
}

// ProviderDirectory holds the affiliated provider organization bundle and
// the subset of organization ids that form the pediatric network.
type ProviderDirectory struct {
	doc             map[string]any
	pediatricOrgIDs []string
}

// LoadProviderDirectory reads a provider bundle JSON file. A nil or empty
// pediatricOrgIDs falls back to the default network.
func LoadProviderDirectory(path string, pediatricOrgIDs []string) (*ProviderDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider directory: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing provider directory %s: %w", path, err)
	}
	return NewProviderDirectory(doc, pediatricOrgIDs), nil
}

// NewProviderDirectory wraps an already decoded provider bundle.
func NewProviderDirectory(doc map[string]any, pediatricOrgIDs []string) *ProviderDirectory {
	if len(pediatricOrgIDs) == 0 {
		pediatricOrgIDs = DefaultPediatricOrgIDs
	}
	return &ProviderDirectory{doc: doc, pediatricOrgIDs: pediatricOrgIDs}
}

// EmptyProviderDirectory returns a directory with no organizations, for
// runs without a provider bundle. The pediatric network defaults still
// apply.
func EmptyProviderDirectory() *ProviderDirectory {
	return NewProviderDirectory(map[string]any{"resourceType": "Bundle"}, nil)
}

// Organizations returns every Organization resource in the directory.
func (d *ProviderDirectory) Organizations() []map[string]any {
	var orgs []map[string]any
	for _, e := range bundle.Entries(d.doc) {
		if e.ResourceType() == "Organization" {
			orgs = append(orgs, e.Resource())
		}
	}
	return orgs
}

// IsPediatricNetwork reports whether an organization id belongs to the
// pediatric network. Matching is a case-insensitive substring test, since
// generated data sometimes carries prefixed or suffixed ids.
func (d *ProviderDirectory) IsPediatricNetwork(orgID string) bool {
	if orgID == "" {
		return false
	}
	lower := strings.ToLower(orgID)
	for _, id := range d.pediatricOrgIDs {
		if strings.Contains(lower, id) {
			return true
		}
	}
	return false
}
