package disorder

import (
	"regexp"
	"strings"
)

// Vocabulary identifies a disorder terminology by its code prefix.
type Vocabulary string

// Known vocabularies.
const (
	// OMIM is Online Mendelian Inheritance in Man. Bare integer
	// identifiers are treated as OMIM numbers.
	OMIM Vocabulary = "MIM"
	// MONDO is the Mondo Disease Ontology.
	MONDO Vocabulary = "MONDO"
	// ORPHA is the Orphanet rare disease nomenclature.
	ORPHA Vocabulary = "ORPHA"
)

// DefaultVocabulary is the vocabulary bare integer identifiers belong to.
const DefaultVocabulary = OMIM

// String returns the prefix.
func (v Vocabulary) String() string {
	return string(v)
}

// IsKnown returns true if this is a registered vocabulary.
func (v Vocabulary) IsKnown() bool {
	_, ok := vocabularyConfigs[v]
	return ok
}

// vocabularyConfig holds vocabulary-specific configuration.
type vocabularyConfig struct {
	// Title is the human readable vocabulary name
	Title string

	// System is the canonical code system URL used in FHIR lookups
	System string

	// IDPattern matches a complete, well-formed code including the prefix
	IDPattern *regexp.Regexp
}

var vocabularyConfigs = map[Vocabulary]vocabularyConfig{
	OMIM: {
		Title:     "Online Mendelian Inheritance in Man (OMIM)",
		System:    "https://omim.org",
		IDPattern: regexp.MustCompile(`(?i)^MIM:[0-9]+$`),
	},
	MONDO: {
		Title:     "Mondo Disease Ontology (MONDO)",
		System:    "http://purl.obolibrary.org/obo/mondo.owl",
		IDPattern: regexp.MustCompile(`(?i)^MONDO:[0-9]+$`),
	},
	ORPHA: {
		Title:     "Orphanet Rare Disease Ontology (ORPHA)",
		System:    "http://www.orpha.net",
		IDPattern: regexp.MustCompile(`(?i)^ORPHA:[0-9]+$`),
	},
}

// Title returns the human readable vocabulary name, or the prefix itself
// for unknown vocabularies.
func (v Vocabulary) Title() string {
	if cfg, ok := vocabularyConfigs[v]; ok {
		return cfg.Title
	}
	return string(v)
}

// System returns the canonical code system URL, or "" if unknown.
func (v Vocabulary) System() string {
	return vocabularyConfigs[v].System
}

// Matches reports whether code is a well-formed identifier of this vocabulary.
// Unknown vocabularies match nothing.
func (v Vocabulary) Matches(code Code) bool {
	cfg, ok := vocabularyConfigs[v]
	if !ok {
		return false
	}
	return cfg.IDPattern.MatchString(string(code))
}

// LookupVocabulary finds a registered vocabulary by prefix, ignoring case.
func LookupVocabulary(prefix string) (Vocabulary, bool) {
	for v := range vocabularyConfigs {
		if strings.EqualFold(string(v), prefix) {
			return v, true
		}
	}
	return "", false
}

// VocabularyForSystem finds a registered vocabulary by code system URL.
func VocabularyForSystem(system string) (Vocabulary, bool) {
	system = strings.TrimSuffix(system, "/")
	for v, cfg := range vocabularyConfigs {
		if cfg.System == system {
			return v, true
		}
	}
	return "", false
}
