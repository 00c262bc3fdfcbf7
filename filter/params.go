package filter

import (
	"strconv"
	"strings"
)

// Param is a named value bound to a query placeholder.
type Param struct {
	Name  string `json:"name" msgpack:"name"`
	Value any    `json:"value" msgpack:"value"`
}

// Params is the ordered parameter list of a compiled query.
type Params []Param

// Names returns parameter names in binding order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Lookup returns the value bound to name.
func (p Params) Lookup(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Map returns the parameters keyed by name.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// binder accumulates parameters and renders their placeholders.
type binder struct {
	dialect Dialect
	params  Params
	seen    map[string]struct{}
}

func newBinder(d Dialect) *binder {
	return &binder{dialect: d, seen: make(map[string]struct{})}
}

// bind appends a parameter and returns its placeholder.
// Names are lowercased; engines differ on named parameter case rules. A name
// already bound gets the first free "_2", "_3", ... suffix, so attributes
// differing only in case still bind distinct parameters.
func (b *binder) bind(name string, value any) string {
	base := strings.ToLower(name)
	name = base
	for n := 2; ; n++ {
		if _, dup := b.seen[name]; !dup {
			break
		}
		name = base + "_" + strconv.Itoa(n)
	}
	b.seen[name] = struct{}{}
	b.params = append(b.params, Param{Name: name, Value: value})
	return b.dialect.Placeholder(name)
}
