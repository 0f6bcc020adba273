package propbag

import (
	"strconv"
	"strings"
)

// Token is one encoded property: type tag, 3-digit length, payload.
type Token struct {
	Kind    Kind
	Payload string // name=text
	Offset  int    // offset of the type tag in the document
}

// String returns the token as it appears on the wire.
func (t Token) String() string {
	var sb strings.Builder
	sb.Grow(headerLen + len(t.Payload))
	writeToken(&sb, t.Kind, t.Payload)
	return sb.String()
}

// Split splits the payload at the first '='.
func (t Token) Split() (name, text string, ok bool) {
	i := strings.IndexByte(t.Payload, Separator)
	if i < 0 {
		return "", "", false
	}
	return t.Payload[:i], t.Payload[i+1:], true
}

// Property parses the token's payload into a typed property.
func (t Token) Property() (Property, error) {
	name, text, ok := t.Split()
	if !ok {
		return Property{}, &ParseError{Reason: "payload has no '='", Offset: t.Offset}
	}
	p, err := parseValue(t.Kind, name, text)
	if err != nil {
		return Property{}, &ParseError{Reason: "bad " + t.Kind.String() + " value for " + strconv.Quote(name), Offset: t.Offset, Err: err}
	}
	return p, nil
}

func writeToken(sb *strings.Builder, kind Kind, payload string) {
	sb.WriteByte(byte(kind))
	n := len(payload)
	if n < 100 {
		sb.WriteByte('0')
	}
	if n < 10 {
		sb.WriteByte('0')
	}
	sb.WriteString(strconv.Itoa(n))
	sb.WriteString(payload)
}

// scanner walks the tokens of a document, summing payload hashes as it goes.
// It never reads into the trailing checksum field.
type scanner struct {
	doc string
	pos int
	end int // start of the checksum field
	sum Checksum
}

func newScanner(doc string) (*scanner, error) {
	if len(doc) < ChecksumWidth {
		return nil, &ParseError{Reason: "document shorter than checksum field", Offset: 0}
	}
	return &scanner{doc: doc, end: len(doc) - ChecksumWidth}, nil
}

// more reports whether another token starts before the checksum field.
func (s *scanner) more() bool {
	return s.pos+ChecksumWidth < len(s.doc)
}

// next reads the token at the current offset.
func (s *scanner) next() (Token, error) {
	start := s.pos
	if start+headerLen > s.end {
		return Token{}, &ParseError{Reason: "truncated token header", Offset: start}
	}

	kind := Kind(s.doc[start])
	if !kind.Valid() {
		return Token{}, &ParseError{Reason: "unknown type tag " + strconv.QuoteRune(rune(kind)), Offset: start}
	}

	field := s.doc[start+1 : start+headerLen]
	n, ok := parseLength(field)
	if !ok {
		return Token{}, &ParseError{Reason: "bad length field " + strconv.Quote(field), Offset: start + 1}
	}

	body := start + headerLen
	if body+n > s.end {
		return Token{}, &ParseError{Reason: "token overlaps checksum field", Offset: start}
	}

	payload := s.doc[body : body+n]
	s.pos = body + n
	s.sum.add(payload)
	return Token{Kind: kind, Payload: payload, Offset: start}, nil
}

// trailer returns the claimed checksum field.
func (s *scanner) trailer() string {
	return s.doc[s.end:]
}

// parseLength accepts exactly LengthWidth decimal digits.
func parseLength(field string) (int, bool) {
	if len(field) != LengthWidth {
		return 0, false
	}
	n := 0
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Tokenize splits doc into tokens and returns them with the checksum computed
// over their payloads. The trailer is not compared; use Verify for that.
func Tokenize(doc string) ([]Token, Checksum, error) {
	s, err := newScanner(doc)
	if err != nil {
		return nil, 0, err
	}
	var tokens []Token
	for s.more() {
		tok, err := s.next()
		if err != nil {
			return nil, 0, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, s.sum, nil
}

// Assemble builds a document from tokens, appending the checksum of their
// payloads. Tokens are written in the given order.
func Assemble(tokens []Token) string {
	var sb strings.Builder
	var sum Checksum
	for _, t := range tokens {
		writeToken(&sb, t.Kind, t.Payload)
		sum.add(t.Payload)
	}
	sb.WriteString(sum.String())
	return sb.String()
}
