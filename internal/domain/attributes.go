package domain

// Attributes is an insertion-ordered mapping from attribute name to Value.
// The zero value is ready to use.
type Attributes struct {
	names  []string
	values map[string]Value
}

// NewAttributes builds an Attributes from pairs, keeping their order.
func NewAttributes(pairs ...Attribute) Attributes {
	var a Attributes
	for _, p := range pairs {
		a.Set(p.Name, p.Value)
	}
	return a
}

// Attribute is one name/value pair of an Attributes bag.
type Attribute struct {
	Name  string
	Value Value
}

// Set stores v under name. Re-setting an existing name keeps its position.
func (a *Attributes) Set(name string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

func (a Attributes) Get(name string) (Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a Attributes) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Names returns the attribute names in insertion order.
func (a Attributes) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

func (a Attributes) Len() int { return len(a.names) }

// Each calls fn for every attribute in insertion order.
func (a Attributes) Each(fn func(name string, v Value)) {
	for _, name := range a.names {
		fn(name, a.values[name])
	}
}
