package propbag

// Store holds the properties decoded from one document. Marshal's counterpart
// hands it to a ReadProperties hook; it is only populated when the document's
// checksum matched.
//
// Properties are keyed by name, separately per kind, so "x" as an int and "x"
// as a string do not collide. A later token for the same name and kind
// replaces the earlier value.
type Store struct {
	ints  map[string]int64
	reals map[string]float64
	strs  map[string]string

	order []storeKey
	seen  map[storeKey]struct{}
	sum   Checksum
}

type storeKey struct {
	name string
	kind Kind
}

func newStore() *Store {
	return &Store{
		ints:  make(map[string]int64),
		reals: make(map[string]float64),
		strs:  make(map[string]string),
		seen:  make(map[storeKey]struct{}),
	}
}

func (st *Store) put(p Property) {
	switch p.Kind {
	case KindInt:
		st.ints[p.Name] = p.Int
	case KindReal:
		st.reals[p.Name] = p.Real
	case KindStr:
		st.strs[p.Name] = p.Str
	}
	k := storeKey{p.Name, p.Kind}
	if _, ok := st.seen[k]; !ok {
		st.seen[k] = struct{}{}
		st.order = append(st.order, k)
	}
}

// Int returns the integer property name, or 0 if there is none.
func (st *Store) Int(name string) int64 {
	v, _ := st.LookupInt(name)
	return v
}

// Real returns the real property name, or 0 if there is none.
func (st *Store) Real(name string) float64 {
	v, _ := st.LookupReal(name)
	return v
}

// Str returns the string property name, or "" if there is none.
func (st *Store) Str(name string) string {
	v, _ := st.LookupStr(name)
	return v
}

// LookupInt returns the integer property name and whether it was present.
func (st *Store) LookupInt(name string) (int64, bool) {
	if st == nil {
		return 0, false
	}
	v, ok := st.ints[name]
	return v, ok
}

// LookupReal returns the real property name and whether it was present.
func (st *Store) LookupReal(name string) (float64, bool) {
	if st == nil {
		return 0, false
	}
	v, ok := st.reals[name]
	return v, ok
}

// LookupStr returns the string property name and whether it was present.
func (st *Store) LookupStr(name string) (string, bool) {
	if st == nil {
		return "", false
	}
	v, ok := st.strs[name]
	return v, ok
}

// Has reports whether a property called name was decoded, of any kind.
func (st *Store) Has(name string) bool {
	if st == nil {
		return false
	}
	_, i := st.ints[name]
	_, r := st.reals[name]
	_, s := st.strs[name]
	return i || r || s
}

// Kinds returns the kinds decoded under name, in the order they first
// appeared.
func (st *Store) Kinds(name string) []Kind {
	if st == nil {
		return nil
	}
	var kinds []Kind
	for _, k := range st.order {
		if k.name == name {
			kinds = append(kinds, k.kind)
		}
	}
	return kinds
}

// Len returns the number of distinct (name, kind) properties.
func (st *Store) Len() int {
	if st == nil {
		return 0
	}
	return len(st.order)
}

// Checksum returns the checksum recomputed while decoding.
func (st *Store) Checksum() Checksum {
	if st == nil {
		return 0
	}
	return st.sum
}

// Properties returns the decoded properties in the order each (name, kind)
// first appeared, holding the value that won.
func (st *Store) Properties() []Property {
	if st == nil {
		return nil
	}
	props := make([]Property, 0, len(st.order))
	for _, k := range st.order {
		p := Property{Name: k.name, Kind: k.kind}
		switch k.kind {
		case KindInt:
			p.Int = st.ints[k.name]
		case KindReal:
			p.Real = st.reals[k.name]
		case KindStr:
			p.Str = st.strs[k.name]
		}
		props = append(props, p)
	}
	return props
}
