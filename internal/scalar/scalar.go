// Package scalar maps value types to schema scalars.
package scalar

import (
	"maps"
	"sort"

	"github.com/hanpama/graphkit/internal/descriptor"
)

// Scalar is a schema scalar together with its converter pair.
type Scalar struct {
	Name           string
	Description    string
	SpecifiedByURL string
	// Serialize converts a resolved Go value into a JSON-safe value.
	Serialize func(value any) (any, error)
	// Parse converts a coerced input value into the Go value fetch functions
	// expect.
	Parse func(input any) (any, error)
}

// Leaf is the result of a successful lookup.
type Leaf struct {
	Scalar *Scalar
	// Enum is set for enumeration types; their schema node is derived from
	// the type descriptor.
	Enum   bool
	EnumID descriptor.TypeID
	// Nullable is the intrinsic nullability of the value type.
	Nullable bool
}

type entry struct {
	scalar   *Scalar
	enum     bool
	nullable bool
}

// Map is an immutable value-type to scalar registry.
type Map struct {
	entries map[descriptor.TypeID]entry
}

// Empty returns a map without any entry.
func Empty() *Map { return &Map{entries: map[descriptor.TypeID]entry{}} }

// With returns a copy of m mapping id to s. The nullable counterpart of id is
// registered alongside.
func (m *Map) With(id descriptor.TypeID, s Scalar) *Map {
	sc := s
	return m.with(id, entry{scalar: &sc}, true)
}

// WithNullable returns a copy of m mapping id to s where id itself is a
// nullable wrapper type.
func (m *Map) WithNullable(id descriptor.TypeID, s Scalar) *Map {
	sc := s
	return m.with(id, entry{scalar: &sc, nullable: true}, false)
}

// WithEnum returns a copy of m treating id as an enumeration leaf.
func (m *Map) WithEnum(id descriptor.TypeID) *Map {
	return m.with(id, entry{enum: true}, true)
}

func (m *Map) with(id descriptor.TypeID, e entry, counterpart bool) *Map {
	next := &Map{entries: maps.Clone(m.entries)}
	if next.entries == nil {
		next.entries = map[descriptor.TypeID]entry{}
	}
	next.entries[id] = e
	if counterpart {
		ne := e
		ne.nullable = true
		next.entries[descriptor.Nullable(id)] = ne
	}
	return next
}

// alias reuses the entry registered for target under id.
func (m *Map) alias(id, target descriptor.TypeID) *Map {
	e := m.entries[target]
	return m.with(id, entry{scalar: e.scalar, enum: e.enum}, true)
}

// Lookup resolves the element type of ref.
func (m *Map) Lookup(ref descriptor.TypeRef) (Leaf, bool) {
	if m == nil {
		return Leaf{}, false
	}
	e, ok := m.entries[ref.ID]
	if !ok {
		return Leaf{}, false
	}
	leaf := Leaf{Scalar: e.scalar, Enum: e.enum, Nullable: e.nullable}
	if e.enum {
		leaf.EnumID = ref.Elem()
	}
	return leaf, true
}

// Has reports whether id is mapped.
func (m *Map) Has(id descriptor.TypeID) bool {
	if m == nil {
		return false
	}
	_, ok := m.entries[id]
	return ok
}

// Scalars returns the distinct scalars of m sorted by name.
func (m *Map) Scalars() []*Scalar {
	seen := map[string]*Scalar{}
	for _, e := range m.entries {
		if e.scalar != nil {
			if _, ok := seen[e.scalar.Name]; !ok {
				seen[e.scalar.Name] = e.scalar
			}
		}
	}
	out := make([]*Scalar, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
