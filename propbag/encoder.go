package propbag

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Encoder accumulates the tokens of one document. It is handed to a
// WriteProperties hook by Marshal and is only valid during that call.
//
// The first error is sticky: once an Add call fails, later calls return the
// same error without writing, and Marshal reports it.
type Encoder struct {
	sb  strings.Builder
	sum Checksum
	n   int
	err error
}

// AddProperty appends one property. value must be a Go integer, float or
// string type.
func (e *Encoder) AddProperty(name string, value any) error {
	switch v := value.(type) {
	case int:
		return e.AddInt(name, int64(v))
	case int8:
		return e.AddInt(name, int64(v))
	case int16:
		return e.AddInt(name, int64(v))
	case int32:
		return e.AddInt(name, int64(v))
	case int64:
		return e.AddInt(name, v)
	case uint:
		return e.addUint(name, uint64(v))
	case uint8:
		return e.AddInt(name, int64(v))
	case uint16:
		return e.AddInt(name, int64(v))
	case uint32:
		return e.AddInt(name, int64(v))
	case uint64:
		return e.addUint(name, v)
	case float32:
		return e.AddReal(name, float64(v))
	case float64:
		return e.AddReal(name, v)
	case string:
		return e.AddString(name, v)
	case Property:
		v.Name = name
		return e.Add(v)
	default:
		return e.fail(errors.Wrapf(ErrUnsupportedType, "property %q has type %T", name, value))
	}
}

func (e *Encoder) addUint(name string, v uint64) error {
	if v > math.MaxInt64 {
		return e.fail(errors.Wrapf(ErrUnsupportedType, "property %q: %d overflows int64", name, v))
	}
	return e.AddInt(name, int64(v))
}

// AddInt appends an integer property.
func (e *Encoder) AddInt(name string, v int64) error {
	return e.Add(Int(name, v))
}

// AddReal appends a real property.
func (e *Encoder) AddReal(name string, v float64) error {
	return e.Add(Real(name, v))
}

// AddString appends a string property.
func (e *Encoder) AddString(name, v string) error {
	return e.Add(Str(name, v))
}

// Add appends p. Nothing is written unless the name and payload are valid.
func (e *Encoder) Add(p Property) error {
	if e.err != nil {
		return e.err
	}
	if err := ValidateName(p.Name); err != nil {
		return e.fail(err)
	}
	if !p.Kind.Valid() {
		return e.fail(errors.Wrapf(ErrUnsupportedType, "property %q has kind %s", p.Name, p.Kind))
	}
	payload := p.Payload()
	if len(payload) > MaxPayloadLen {
		return e.fail(errors.Wrapf(ErrPayloadTooLong, "property %q is %d bytes", p.Name, len(payload)))
	}

	writeToken(&e.sb, p.Kind, payload)
	e.sum.add(payload)
	e.n++
	return nil
}

// Len returns the number of properties written so far.
func (e *Encoder) Len() int {
	return e.n
}

// Err returns the first error encountered, if any.
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	return e.err
}

// finish appends the checksum trailer and returns the document.
func (e *Encoder) finish() (string, Checksum, error) {
	if e.err != nil {
		return "", 0, e.err
	}
	e.sb.WriteString(e.sum.String())
	return e.sb.String(), e.sum, nil
}

// ValidateName checks a property name against the wire format: 1 to 10 bytes,
// no '='.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return errors.Wrapf(ErrNameTooLong, "property %q", name)
	}
	if name == "" || strings.IndexByte(name, Separator) >= 0 {
		return errors.Wrapf(ErrInvalidName, "property %q", name)
	}
	return nil
}
