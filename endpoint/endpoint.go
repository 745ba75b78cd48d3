// Package endpoint builds lookup URLs for disorder codes.
//
// Template fills a URL pattern such as
// "https://phenotips.example.org/rest/vocabularies/disorders/{code}",
// which returns the plain {"id", "name"} record. FHIRLookup targets a FHIR
// terminology server's CodeSystem/$lookup operation; pair it with a
// disorder.FHIRPathDecoder to read the display from the Parameters result.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofhir/disorder"
)

// Placeholder is replaced by the path-escaped code in a Template.
const Placeholder = "{code}"

// UnknownSystemPrefix forms the system of codes whose vocabulary is not
// registered, e.g. "urn:disorder:HP".
const UnknownSystemPrefix = "urn:disorder:"

// Template resolves codes by substituting them into a URL pattern.
type Template struct {
	pattern string
}

// NewTemplate creates a Template. The pattern must contain Placeholder.
func NewTemplate(pattern string) (*Template, error) {
	if !strings.Contains(pattern, Placeholder) {
		return nil, fmt.Errorf("endpoint template %q has no %s placeholder", pattern, Placeholder)
	}
	return &Template{pattern: pattern}, nil
}

// MustTemplate is like NewTemplate but panics on error.
func MustTemplate(pattern string) *Template {
	t, err := NewTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the URL pattern.
func (t *Template) Pattern() string {
	return t.pattern
}

// DisorderDetailsURL implements disorder.EndpointResolver.
func (t *Template) DisorderDetailsURL(code disorder.Code) string {
	return strings.ReplaceAll(t.pattern, Placeholder, url.PathEscape(string(code)))
}

// FHIRLookup resolves codes to CodeSystem/$lookup requests.
type FHIRLookup struct {
	base string
}

// NewFHIRLookup creates a FHIRLookup for the terminology server at base.
func NewFHIRLookup(base string) (*FHIRLookup, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid terminology server URL %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid terminology server URL %q: scheme and host required", base)
	}
	return &FHIRLookup{base: strings.TrimSuffix(base, "/")}, nil
}

// Base returns the server base URL without a trailing slash.
func (f *FHIRLookup) Base() string {
	return f.base
}

// DisorderDetailsURL implements disorder.EndpointResolver.
func (f *FHIRLookup) DisorderDetailsURL(code disorder.Code) string {
	params := url.Values{}
	params.Set("system", System(code))
	params.Set("code", code.Local())
	return f.base + "/CodeSystem/$lookup?" + params.Encode()
}

// System returns the code system URL for the code's vocabulary.
func System(code disorder.Code) string {
	if v, ok := code.Vocabulary(); ok {
		return v.System()
	}
	return UnknownSystemPrefix + code.Prefix()
}

var (
	_ disorder.EndpointResolver = (*Template)(nil)
	_ disorder.EndpointResolver = (*FHIRLookup)(nil)
)
