package propbag

import (
	"github.com/Neumenon/propbag/internal/plog"
	"github.com/pkg/errors"
)

// Serializable is implemented by types that write themselves as properties.
type Serializable interface {
	// WriteProperties adds every property that should survive a round trip.
	WriteProperties(enc *Encoder) error
}

// Deserializable is implemented by types that read themselves back from
// properties.
type Deserializable interface {
	// ReadProperties assigns the type's fields from st. It is only called for
	// documents whose checksum matched.
	ReadProperties(st *Store)
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger. Refused documents are logged as warnings,
// successful calls at verbose level 2.
func WithLogger(l plog.Logger) Option {
	return func(c *Codec) {
		if l == nil {
			l = plog.Nop()
		}
		c.log = l
	}
}

// WithRefusalHandler installs fn, called with the reason whenever Unmarshal
// or Load refuses a document.
func WithRefusalHandler(fn func(error)) Option {
	return func(c *Codec) {
		c.onRefuse = fn
	}
}

// Codec marshals and unmarshals property documents. A Codec holds no per-call
// state and is safe for concurrent use.
type Codec struct {
	log      plog.Logger
	onRefuse func(error)
}

// New returns a Codec configured by opts.
func New(opts ...Option) *Codec {
	c := &Codec{log: plog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marshal runs v's WriteProperties hook and returns the encoded document.
func (c *Codec) Marshal(v Serializable) (string, error) {
	enc := &Encoder{}
	if err := v.WriteProperties(enc); err != nil {
		return "", errors.Wrapf(err, "%T.WriteProperties", v)
	}
	doc, sum, err := enc.finish()
	if err != nil {
		return "", errors.Wrapf(err, "%T.WriteProperties", v)
	}
	c.log.Infof(2, "marshaled %T: %d properties, checksum %s", v, enc.Len(), sum)
	return doc, nil
}

// Decode scans doc, checks its checksum and returns the decoded properties.
// No hook is involved.
func (c *Codec) Decode(doc string) (*Store, error) {
	s, err := newScanner(doc)
	if err != nil {
		return nil, err
	}
	st := newStore()
	for s.more() {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		p, err := tok.Property()
		if err != nil {
			return nil, err
		}
		st.put(p)
	}
	if claimed := s.trailer(); claimed != s.sum.String() {
		return nil, &ChecksumMismatchError{Claimed: claimed, Computed: s.sum}
	}
	st.sum = s.sum
	return st, nil
}

// Unmarshal decodes doc and, if it is intact, runs v's ReadProperties hook.
//
// A malformed or tampered document leaves v untouched: the hook is not called
// and the returned error matches ErrMalformed or ErrChecksumMismatch. Callers
// that treat a bad save as "nothing to load" may ignore the error.
func (c *Codec) Unmarshal(doc string, v Deserializable) error {
	st, err := c.Decode(doc)
	if err != nil {
		c.refuse(v, err)
		return err
	}
	v.ReadProperties(st)
	c.log.Infof(2, "unmarshaled %T: %d properties, checksum %s", v, st.Len(), st.sum)
	return nil
}

// Load is Unmarshal reporting only whether v was loaded.
func (c *Codec) Load(doc string, v Deserializable) bool {
	return c.Unmarshal(doc, v) == nil
}

func (c *Codec) refuse(v Deserializable, err error) {
	c.log.Warnf("refused document for %T: %v", v, err)
	if c.onRefuse != nil {
		c.onRefuse(err)
	}
}

// Verify checks doc's structure and checksum and returns the checksum.
func Verify(doc string) (Checksum, error) {
	st, err := defaultCodec.Decode(doc)
	if err != nil {
		return 0, err
	}
	return st.sum, nil
}

var defaultCodec = New()

// Marshal encodes v with the default Codec.
func Marshal(v Serializable) (string, error) {
	return defaultCodec.Marshal(v)
}

// Unmarshal decodes doc into v with the default Codec.
func Unmarshal(doc string, v Deserializable) error {
	return defaultCodec.Unmarshal(doc, v)
}

// Decode decodes doc with the default Codec.
func Decode(doc string) (*Store, error) {
	return defaultCodec.Decode(doc)
}

// Load decodes doc into v with the default Codec and reports success.
func Load(doc string, v Deserializable) bool {
	return defaultCodec.Load(doc, v)
}
