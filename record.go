package disorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gofhir/fhirpath"
)

// Record is the decoded lookup response. Name is nil when the service
// returned no name for the term.
type Record struct {
	ID   string  `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// DisplayName returns the trimmed name and whether it is usable.
// Blank names count as absent.
func (r *Record) DisplayName() (string, bool) {
	if r == nil || r.Name == nil {
		return "", false
	}
	name := strings.TrimSpace(*r.Name)
	return name, name != ""
}

// Decoder turns a lookup response body into a Record.
type Decoder interface {
	Decode(body []byte) (*Record, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(body []byte) (*Record, error)

// Decode calls f(body).
func (f DecoderFunc) Decode(body []byte) (*Record, error) { return f(body) }

// JSONDecoder decodes the plain {"id": ..., "name": ...} record returned by
// the vocabulary REST service. A JSON null body decodes to an empty record.
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(body []byte) (*Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DefaultDisplayExpression extracts the display of a FHIR $lookup response.
const DefaultDisplayExpression = "parameter.where(name = 'display').valueString"

// FHIRPathDecoder extracts the name from a FHIR resource with a FHIRPath
// expression. The first item of the result collection becomes the name;
// an empty result yields a record without a name.
type FHIRPathDecoder struct {
	expression string

	once     sync.Once
	compiled *fhirpath.Expression
	err      error
}

// NewFHIRPathDecoder creates a decoder for expression, or for
// DefaultDisplayExpression when expression is empty. The expression is
// compiled eagerly so that syntax errors surface at construction.
func NewFHIRPathDecoder(expression string) (*FHIRPathDecoder, error) {
	if strings.TrimSpace(expression) == "" {
		expression = DefaultDisplayExpression
	}
	d := &FHIRPathDecoder{expression: expression}
	if _, err := d.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expression, err)
	}
	return d, nil
}

// Expression returns the FHIRPath expression in use.
func (d *FHIRPathDecoder) Expression() string {
	return d.expression
}

func (d *FHIRPathDecoder) compile() (*fhirpath.Expression, error) {
	d.once.Do(func() {
		d.compiled, d.err = fhirpath.Compile(d.expression)
	})
	return d.compiled, d.err
}

// Decode implements Decoder.
func (d *FHIRPathDecoder) Decode(body []byte) (*Record, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	compiled, err := d.compile()
	if err != nil {
		return nil, err
	}
	result, err := compiled.Evaluate(body)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", d.expression, err)
	}
	if len(result) == 0 {
		return &Record{}, nil
	}
	name := fmt.Sprint(result[0])
	return &Record{Name: &name}, nil
}

var (
	_ Decoder = JSONDecoder{}
	_ Decoder = (*FHIRPathDecoder)(nil)
)
