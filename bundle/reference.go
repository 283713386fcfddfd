package bundle

import (
	"strings"
)

const urnUUIDPrefix = "urn:uuid:"

// IsConditional reports whether a reference string is a conditional
// (search-style) reference rather than a direct identity reference.
func IsConditional(ref string) bool {
	return strings.Contains(ref, "?")
}

// ConditionalRef is a parsed conditional reference of the form
// Kind?identifier=system|value.
type ConditionalRef struct {
	// Kind is the target resource type, e.g. "Practitioner"
	Kind string

	// Param is the search parameter name, normally "identifier"
	Param string

	// System is the identifier system, empty for systemless values
	System string

	// Value is the identifier value
	Value string

	// Raw is the original reference string
	Raw string
}

// ParseConditional splits a conditional reference into its parts.
// It returns false when the string is not query-shaped or the query has no
// parameter value.
func ParseConditional(ref string) (ConditionalRef, bool) {
	kind, query, found := strings.Cut(ref, "?")
	if !found || kind == "" || query == "" {
		return ConditionalRef{}, false
	}

	param, rest, found := strings.Cut(query, "=")
	if !found || rest == "" {
		return ConditionalRef{}, false
	}

	system, value, found := strings.Cut(rest, "|")
	if !found {
		// Systemless: the whole token is the value
		value = rest
		system = ""
	}
	if value == "" {
		return ConditionalRef{}, false
	}

	return ConditionalRef{
		Kind:   kind,
		Param:  param,
		System: system,
		Value:  value,
		Raw:    ref,
	}, true
}

// Key returns the canonical map key for this conditional reference,
// Kind?param=system|value. Two references to the same target always
// produce the same key.
func (c ConditionalRef) Key() string {
	return c.Kind + "?" + c.Param + "=" + c.System + "|" + c.Value
}

// ConditionalKey builds the canonical conditional-reference key directly.
func ConditionalKey(kind, system, value string) string {
	return kind + "?identifier=" + system + "|" + value
}

// NormalizeLocal strips the urn:uuid: prefix from a bundle-local reference,
// leaving other references untouched.
func NormalizeLocal(ref string) string {
	return strings.Replace(ref, urnUUIDPrefix, "", 1)
}

// IsLocalURN reports whether the reference is a bundle-local urn:uuid value.
func IsLocalURN(ref string) bool {
	return strings.HasPrefix(ref, urnUUIDPrefix)
}

// FinalID returns the identity an entry's resource will have once loaded.
// Preference order: fullUrl with the urn:uuid: prefix stripped, the last
// path segment of any other fullUrl, then resource.id.
func FinalID(e Entry) string {
	if u := e.FullURL(); u != "" {
		if strings.HasPrefix(u, urnUUIDPrefix) {
			return strings.TrimPrefix(u, urnUUIDPrefix)
		}
		if idx := strings.LastIndex(u, "/"); idx != -1 && idx < len(u)-1 {
			return u[idx+1:]
		}
		return u
	}
	return e.ResourceID()
}
