package propbag

// Bag is an ordered set of properties that implements both Serializable and
// Deserializable. It is useful when there is no Go type to describe the
// properties, as in tools that convert documents.
type Bag struct {
	props []Property
}

// NewBag returns a Bag holding props, in order. A later property replaces an
// earlier one with the same name and kind.
func NewBag(props ...Property) *Bag {
	b := &Bag{}
	for _, p := range props {
		b.Set(p)
	}
	return b
}

// Set adds p, replacing any property with the same name and kind in place.
func (b *Bag) Set(p Property) {
	for i := range b.props {
		if b.props[i].Name == p.Name && b.props[i].Kind == p.Kind {
			b.props[i] = p
			return
		}
	}
	b.props = append(b.props, p)
}

// Get returns the first property called name.
func (b *Bag) Get(name string) (Property, bool) {
	for _, p := range b.props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Properties returns the properties in order. The slice is shared with b.
func (b *Bag) Properties() []Property {
	return b.props
}

// Len returns the number of properties.
func (b *Bag) Len() int {
	return len(b.props)
}

// WriteProperties implements Serializable.
func (b *Bag) WriteProperties(enc *Encoder) error {
	for _, p := range b.props {
		if err := enc.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadProperties implements Deserializable.
func (b *Bag) ReadProperties(st *Store) {
	b.props = st.Properties()
}
