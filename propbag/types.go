package propbag

import (
	"fmt"
	"strconv"
)

// Wire format constants.
const (
	MaxNameLen    = 10  // longest property name, in bytes
	MaxPayloadLen = 999 // largest value the 3-digit length field can hold
	LengthWidth   = 3   // width of a token's length field
	ChecksumWidth = 10  // width of the trailing checksum field
	Separator     = '=' // splits a payload into name and value text

	headerLen = 1 + LengthWidth // type tag + length field
)

// Kind is the type tag of a property.
type Kind byte

const (
	KindInt  Kind = 'i'
	KindReal Kind = 'r'
	KindStr  Kind = 's'
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindStr:
		return "str"
	default:
		return fmt.Sprintf("unknown(%q)", byte(k))
	}
}

// Valid reports whether k is one of the three wire tags.
func (k Kind) Valid() bool {
	return k == KindInt || k == KindReal || k == KindStr
}

// ParseKind parses a kind name or a wire tag.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "int", "i":
		return KindInt, true
	case "real", "r":
		return KindReal, true
	case "str", "s":
		return KindStr, true
	default:
		return 0, false
	}
}

// Property is a named, typed value. Only the field matching Kind is meaningful.
type Property struct {
	Name string
	Kind Kind

	Int  int64
	Real float64
	Str  string
}

// Int returns an integer property.
func Int(name string, v int64) Property {
	return Property{Name: name, Kind: KindInt, Int: v}
}

// Real returns a real property.
func Real(name string, v float64) Property {
	return Property{Name: name, Kind: KindReal, Real: v}
}

// Str returns a string property.
func Str(name, v string) Property {
	return Property{Name: name, Kind: KindStr, Str: v}
}

// Value returns the property value as an int64, float64 or string.
func (p Property) Value() any {
	switch p.Kind {
	case KindInt:
		return p.Int
	case KindReal:
		return p.Real
	default:
		return p.Str
	}
}

// Text returns the canonical value text written on the wire.
func (p Property) Text() string {
	switch p.Kind {
	case KindInt:
		return strconv.FormatInt(p.Int, 10)
	case KindReal:
		return formatReal(p.Real)
	default:
		return p.Str
	}
}

// Payload returns "name=text".
func (p Property) Payload() string {
	return p.Name + string(Separator) + p.Text()
}

// String returns a debug representation of the property.
func (p Property) String() string {
	return fmt.Sprintf("%s:%s=%s", p.Name, p.Kind, p.Text())
}

// formatReal uses the shortest representation that parses back to the same float64.
func formatReal(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseValue parses value text according to kind.
func parseValue(kind Kind, name, text string) (Property, error) {
	p := Property{Name: name, Kind: kind}
	switch kind {
	case KindInt:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return p, err
		}
		p.Int = v
	case KindReal:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return p, err
		}
		p.Real = v
	case KindStr:
		p.Str = text
	default:
		return p, fmt.Errorf("unknown type tag %q", byte(kind))
	}
	return p, nil
}
