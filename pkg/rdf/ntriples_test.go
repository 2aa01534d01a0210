package rdf

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadNTriples(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{
			name:     "simple triple",
			input:    "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n",
			expected: 1,
		},
		{
			name: "comments and blank lines",
			input: `# leading comment

<http://example.org/s> <http://example.org/p> "x" . # trailing comment
`,
			expected: 1,
		},
		{
			name: "literals and blank nodes",
			input: `_:b1 <http://example.org/p> "value" .
<http://example.org/s> <http://example.org/p> _:b2.
<http://example.org/s> <http://example.org/p> "hello"@en .
<http://example.org/s> <http://example.org/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .
`,
			expected: 4,
		},
		{
			name:    "missing dot",
			input:   "<http://example.org/s> <http://example.org/p> <http://example.org/o>\n",
			wantErr: true,
		},
		{
			name:    "literal subject",
			input:   `"s" <http://example.org/p> <http://example.org/o> .` + "\n",
			wantErr: true,
		},
		{
			name:    "blank node predicate",
			input:   "<http://example.org/s> _:p <http://example.org/o> .\n",
			wantErr: true,
		},
		{
			name:    "unclosed literal",
			input:   `<http://example.org/s> <http://example.org/p> "open .` + "\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triples, err := NewNTriplesReader(strings.NewReader(tt.input)).ReadAll()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadAll() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(triples) != tt.expected {
				t.Errorf("expected %d triples, got %d", tt.expected, len(triples))
			}
		})
	}
}

func TestReadReportsLineNumber(t *testing.T) {
	input := "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n\nbroken\n"
	r := NewNTriplesReader(strings.NewReader(input))
	if _, err := r.Read(); err != nil {
		t.Fatalf("first line: %v", err)
	}
	_, err := r.Read()
	if err == nil || !strings.HasPrefix(err.Error(), "line 3:") {
		t.Fatalf("expected line 3 error, got %v", err)
	}
}

func TestReadEOF(t *testing.T) {
	r := NewNTriplesReader(strings.NewReader(""))
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestTermRoundTrip(t *testing.T) {
	terms := []Term{
		NewNamedNode("http://example.org/a b"),
		NewBlankNode("b0"),
		NewLiteral("plain"),
		NewLiteral("quote \" backslash \\ newline \n tab \t"),
		NewLiteralWithLanguage("bonjour", "fr"),
		NewIntegerLiteral(42),
		NewBooleanLiteral(true),
	}

	for _, term := range terms {
		parsed, err := ParseTerm(term.String())
		if err != nil {
			t.Fatalf("ParseTerm(%s): %v", term, err)
		}
		if !parsed.Equals(term) {
			t.Errorf("round trip of %s gave %s", term, parsed)
		}
	}
}

func TestParseTermUnicodeEscapes(t *testing.T) {
	term, err := ParseTerm(`"café \U0001F600"`)
	if err != nil {
		t.Fatalf("ParseTerm: %v", err)
	}
	lit, ok := term.(*Literal)
	if !ok {
		t.Fatalf("expected literal, got %T", term)
	}
	if lit.Value != "café 😀" {
		t.Errorf("unexpected value %q", lit.Value)
	}

	if _, err := ParseTerm(`<http://example.org/> extra`); err == nil {
		t.Error("expected error for trailing input")
	}
}

func TestXSDStringIsPlain(t *testing.T) {
	typed := NewLiteralWithDatatype("x", XSDString)
	if !typed.Equals(NewLiteral("x")) {
		t.Error("xsd:string literal should equal the plain literal")
	}
	if typed.String() != `"x"` {
		t.Errorf("unexpected form %s", typed.String())
	}
}
