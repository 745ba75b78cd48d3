// Package vocabulary provides an in-memory disorder vocabulary.
//
// Terms are loaded from FHIR R4 CodeSystem resources, or Bundles of them,
// and served over HTTP in the {"id", "name"} shape disorder.JSONDecoder
// reads. It backs the "serve" command and stands in for the remote
// vocabulary service in tests.
package vocabulary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/disorder"
)

// Term is a single disorder of the vocabulary.
type Term struct {
	Code    disorder.Code
	Display string
	System  string
}

// Service stores disorder terms keyed by canonical code.
type Service struct {
	mu      sync.RWMutex
	terms   map[disorder.Code]Term
	systems map[string]int // system -> terms loaded
}

// LoadStats contains statistics about vocabulary loading.
type LoadStats struct {
	CodeSystemsLoaded int
	TermsLoaded       int
	Errors            int
}

// NewService creates an empty vocabulary.
func NewService() *Service {
	return &Service{
		terms:   make(map[disorder.Code]Term),
		systems: make(map[string]int),
	}
}

// Canonical returns the key a code is stored under. Registered prefixes
// are upper-cased so that "mim:1" and "MIM:1" name the same term.
func Canonical(code disorder.Code) disorder.Code {
	if v, ok := code.Vocabulary(); ok {
		return disorder.Code(v.String() + disorder.Separator + code.Local())
	}
	return code
}

// Add stores a single term.
func (s *Service) Add(code disorder.Code, display string) {
	key := Canonical(code)
	system := ""
	if v, ok := key.Vocabulary(); ok {
		system = v.System()
	}

	s.mu.Lock()
	s.terms[key] = Term{Code: key, Display: display, System: system}
	s.mu.Unlock()
}

// LoadR4CodeSystem loads the concepts of an R4 CodeSystem. Concept codes
// without a prefix take the prefix of the vocabulary registered for the
// CodeSystem URL; concepts of unregistered systems must carry their own.
func (s *Service) LoadR4CodeSystem(cs *r4.CodeSystem) (int, error) {
	if cs == nil || cs.Url == nil {
		return 0, fmt.Errorf("codesystem is nil or has no URL")
	}

	system := strings.TrimSuffix(*cs.Url, "/")
	prefix := ""
	if v, ok := disorder.VocabularyForSystem(system); ok {
		prefix = v.String()
	}

	terms := make(map[disorder.Code]Term)
	collectConcepts(cs.Concept, system, prefix, terms)
	if len(terms) == 0 {
		return 0, fmt.Errorf("codesystem %s has no usable concepts", system)
	}

	s.mu.Lock()
	for code, term := range terms {
		s.terms[code] = term
	}
	s.systems[system] += len(terms)
	s.mu.Unlock()

	return len(terms), nil
}

func collectConcepts(concepts []r4.CodeSystemConcept, system, prefix string, into map[disorder.Code]Term) {
	for i := range concepts {
		concept := &concepts[i]

		// Nested concepts are terms in their own right
		if len(concept.Concept) > 0 {
			collectConcepts(concept.Concept, system, prefix, into)
		}

		if concept.Code == nil || *concept.Code == "" {
			continue
		}
		code := disorder.Code(*concept.Code)
		if !strings.Contains(*concept.Code, disorder.Separator) {
			if prefix == "" {
				continue
			}
			code = disorder.Code(prefix + disorder.Separator + *concept.Code)
		}
		code = Canonical(code)

		display := ""
		if concept.Display != nil {
			display = strings.TrimSpace(*concept.Display)
		}
		into[code] = Term{Code: code, Display: display, System: system}
	}
}

// LoadJSON loads a CodeSystem or a Bundle of CodeSystems.
func (s *Service) LoadJSON(data []byte) (*LoadStats, error) {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	stats := &LoadStats{}
	switch head.ResourceType {
	case "CodeSystem":
		var cs r4.CodeSystem
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("failed to parse CodeSystem: %w", err)
		}
		n, err := s.LoadR4CodeSystem(&cs)
		if err != nil {
			stats.Errors++
			return stats, err
		}
		stats.CodeSystemsLoaded++
		stats.TermsLoaded += n

	case "Bundle":
		if err := s.loadBundle(data, stats); err != nil {
			return stats, err
		}

	default:
		return nil, fmt.Errorf("unsupported resourceType: %q", head.ResourceType)
	}

	return stats, nil
}

type bundle struct {
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

func (s *Service) loadBundle(data []byte, stats *LoadStats) error {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("failed to parse Bundle: %w", err)
	}

	for _, entry := range b.Entry {
		if entry.Resource == nil {
			continue
		}
		var head struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &head); err != nil || head.ResourceType != "CodeSystem" {
			continue
		}

		var cs r4.CodeSystem
		if err := json.Unmarshal(entry.Resource, &cs); err != nil {
			stats.Errors++
			continue
		}
		n, err := s.LoadR4CodeSystem(&cs)
		if err != nil {
			stats.Errors++
			continue
		}
		stats.CodeSystemsLoaded++
		stats.TermsLoaded += n
	}
	return nil
}

// LoadFile loads a CodeSystem or Bundle JSON file.
func (s *Service) LoadFile(path string) (*LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	stats, err := s.LoadJSON(data)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}
	return stats, nil
}

// Lookup returns the term for code. Bare integers are read as OMIM
// numbers, like disorder.Normalize does.
func (s *Service) Lookup(id string) (Term, bool) {
	code, ok := disorder.Normalize(id)
	if !ok {
		return Term{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	term, ok := s.terms[Canonical(code)]
	return term, ok
}

// Count returns the number of loaded terms.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.terms)
}

// Systems returns the code systems loaded so far, sorted.
func (s *Service) Systems() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	systems := make([]string, 0, len(s.systems))
	for system := range s.systems {
		systems = append(systems, system)
	}
	sort.Strings(systems)
	return systems
}
