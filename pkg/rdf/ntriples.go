package rdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxLineSize bounds a single N-Triples line
const maxLineSize = 16 << 20

// NTriplesReader reads triples from an N-Triples document one line at a time
type NTriplesReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewNTriplesReader creates a reader over r
func NewNTriplesReader(r io.Reader) *NTriplesReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &NTriplesReader{scanner: scanner}
}

// Read returns the next triple, or io.EOF when the document is exhausted.
// Blank lines and comments are skipped.
func (r *NTriplesReader) Read() (*Triple, error) {
	for r.scanner.Scan() {
		r.line++
		p := newTermParser(r.scanner.Text())
		p.skipWhitespaceAndComments()
		if p.done() {
			continue
		}
		triple, err := p.parseTriple()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return triple, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// ReadAll reads every remaining triple
func (r *NTriplesReader) ReadAll() ([]*Triple, error) {
	var triples []*Triple
	for {
		t, err := r.Read()
		if errors.Is(err, io.EOF) {
			return triples, nil
		}
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
}

// ParseTerm parses a single term in N-Triples syntax
func ParseTerm(s string) (Term, error) {
	p := newTermParser(s)
	p.skipWhitespaceAndComments()
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if !p.done() {
		return nil, fmt.Errorf("trailing input after term at position %d", p.pos)
	}
	return term, nil
}

// termParser parses N-Triples terms from one line of input
type termParser struct {
	input  string
	pos    int
	length int
}

func newTermParser(input string) *termParser {
	return &termParser{input: input, length: len(input)}
}

func (p *termParser) done() bool {
	return p.pos >= p.length
}

// skipWhitespaceAndComments skips whitespace and a trailing comment
func (p *termParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			p.pos++
			continue
		}
		if ch == '#' {
			p.pos = p.length
		}
		break
	}
}

// parseTriple parses: subject predicate object .
func (p *termParser) parseTriple() (*Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing subject: %w", err)
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing predicate: %w", err)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing object: %w", err)
	}
	p.skipWhitespaceAndComments()

	if p.done() || p.input[p.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of triple")
	}
	p.pos++
	p.skipWhitespaceAndComments()
	if !p.done() {
		return nil, fmt.Errorf("unexpected input after '.' at position %d", p.pos)
	}

	triple := NewTriple(subject, predicate, object)
	if err := triple.Validate(); err != nil {
		return nil, err
	}
	return triple, nil
}

// parseTerm parses an RDF term (IRI, blank node, or literal)
func (p *termParser) parseTerm() (Term, error) {
	if p.done() {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch ch := p.input[p.pos]; ch {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character at position %d: %c", p.pos, ch)
	}
}

// parseIRI parses an IRI enclosed in < >
func (p *termParser) parseIRI() (string, error) {
	if p.done() || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++

	var iri strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch ch {
		case '>':
			p.pos++
			return iri.String(), nil
		case '\\':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			iri.WriteRune(r)
		case ' ', '<', '"':
			return "", fmt.Errorf("invalid character %q in IRI", ch)
		default:
			iri.WriteByte(ch)
			p.pos++
		}
	}
	return "", fmt.Errorf("unclosed IRI")
}

// parseBlankNode parses a blank node label
func (p *termParser) parseBlankNode() (Term, error) {
	if p.pos+1 >= p.length || p.input[p.pos+1] != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.pos += 2

	start := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '<' || ch == '"' {
			break
		}
		p.pos++
	}
	// A trailing '.' ends the statement rather than the label
	for p.pos > start && p.input[p.pos-1] == '.' {
		p.pos--
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

// parseLiteral parses a quoted literal with an optional language tag or datatype
func (p *termParser) parseLiteral() (Term, error) {
	p.pos++

	var value strings.Builder
	closed := false
	for p.pos < p.length && !closed {
		ch := p.input[p.pos]
		switch ch {
		case '"':
			closed = true
			p.pos++
		case '\\':
			if p.pos+1 >= p.length {
				return nil, fmt.Errorf("unexpected end of input in escape sequence")
			}
			switch esc := p.input[p.pos+1]; esc {
			case 't':
				value.WriteByte('\t')
			case 'b':
				value.WriteByte('\b')
			case 'n':
				value.WriteByte('\n')
			case 'r':
				value.WriteByte('\r')
			case 'f':
				value.WriteByte('\f')
			case '"', '\'', '\\':
				value.WriteByte(esc)
			case 'u', 'U':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return nil, err
				}
				value.WriteRune(r)
				continue
			default:
				return nil, fmt.Errorf("invalid escape sequence \\%c", esc)
			}
			p.pos += 2
		default:
			value.WriteByte(ch)
			p.pos++
		}
	}
	if !closed {
		return nil, fmt.Errorf("unclosed string literal")
	}

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length {
			ch := p.input[p.pos]
			if !(ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
				break
			}
			p.pos++
		}
		if p.pos == start {
			return nil, fmt.Errorf("empty language tag")
		}
		return NewLiteralWithLanguage(value.String(), strings.ToLower(p.input[start:p.pos])), nil
	}

	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		datatype, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		if datatype == XSDString.IRI {
			return NewLiteral(value.String()), nil
		}
		return NewLiteralWithDatatype(value.String(), NewNamedNode(datatype)), nil
	}

	return NewLiteral(value.String()), nil
}

// parseUnicodeEscape parses \uXXXX or \UXXXXXXXX at the current position
func (p *termParser) parseUnicodeEscape() (rune, error) {
	if p.pos+1 >= p.length {
		return 0, fmt.Errorf("unexpected end of input in escape sequence")
	}
	var digits int
	switch p.input[p.pos+1] {
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	default:
		return 0, fmt.Errorf("invalid escape sequence \\%c", p.input[p.pos+1])
	}
	start := p.pos + 2
	if start+digits > p.length {
		return 0, fmt.Errorf("truncated unicode escape")
	}
	v, err := strconv.ParseUint(p.input[start:start+digits], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape: %w", err)
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, fmt.Errorf("invalid code point U+%X", v)
	}
	p.pos = start + digits
	return r, nil
}
