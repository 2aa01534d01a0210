package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/zeebo/xxh3"
)

const (
	// TermKeySize is the size of a term lookup key (type byte + 128-bit hash)
	TermKeySize = 17

	// NodeIDSize is the size of an encoded node id
	NodeIDSize = 8
)

// TermKey is the fixed-size dictionary key of a term: its type byte followed
// by the xxh3 128-bit hash of its canonical form
type TermKey [TermKeySize]byte

// TermEncoder turns RDF terms into canonical strings and dictionary keys
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm returns the dictionary key and canonical N-Triples form of a term
func (e *TermEncoder) EncodeTerm(term rdf.Term) (TermKey, string, error) {
	var key TermKey

	switch term.(type) {
	case *rdf.NamedNode, *rdf.BlankNode, *rdf.Literal:
	default:
		return key, "", fmt.Errorf("unknown term type: %T", term)
	}

	canonical := term.String()
	key[0] = byte(term.Type())
	hash := e.Hash128(canonical)
	copy(key[1:], hash[:])
	return key, canonical, nil
}

// EncodeNodeID encodes a node id as a big-endian key so ids sort numerically
func EncodeNodeID(id hexastore.NodeID) []byte {
	buf := make([]byte, NodeIDSize)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// DecodeNodeID decodes a node id written by EncodeNodeID
func DecodeNodeID(buf []byte) (hexastore.NodeID, error) {
	if len(buf) != NodeIDSize {
		return 0, fmt.Errorf("invalid node id length: %d", len(buf))
	}
	return hexastore.NodeID(binary.BigEndian.Uint64(buf)), nil
}
