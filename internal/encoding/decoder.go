package encoding

import (
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// TermDecoder rebuilds RDF terms from their canonical form
type TermDecoder struct{}

// NewTermDecoder creates a new term decoder
func NewTermDecoder() *TermDecoder {
	return &TermDecoder{}
}

// DecodeTerm parses a canonical term string and checks it against the type
// byte of its dictionary key
func (d *TermDecoder) DecodeTerm(key TermKey, canonical string) (rdf.Term, error) {
	term, err := rdf.ParseTerm(canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to decode term %q: %w", canonical, err)
	}
	if GetTermType(key) != term.Type() {
		return nil, fmt.Errorf("term %q has type %s, key says %s", canonical, term.Type(), GetTermType(key))
	}
	return term, nil
}

// GetTermType extracts the term type from a dictionary key
func GetTermType(key TermKey) rdf.TermType {
	return rdf.TermType(key[0])
}
