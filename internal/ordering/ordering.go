// Package ordering derives sort enumerations for entity types.
//
// A Builder starts from a type descriptor and yields one value per readable
// scalar property and direction, named {field}_ASC and {field}_DESC. Custom
// values carry their own sort key and may be restricted to one direction.
package ordering

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/hanpama/graphkit/internal/descriptor"
)

// Direction is the sort direction of a value.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Directions is the set of directions a custom value is offered in.
type Directions uint8

const (
	AscOnly Directions = 1 << iota
	DescOnly
	Both = AscOnly | DescOnly
)

// Value is one member of an ordering enumeration.
type Value struct {
	Name      string
	Key       string
	Direction Direction
	get       func(any) any
}

// Compare orders a and b by v. Nil sorts first in ascending order. A value
// without a sort key treats every pair as equal.
func (v Value) Compare(a, b any) int {
	if v.get == nil {
		return 0
	}
	c := compareAny(v.get(a), v.get(b))
	if v.Direction == Desc {
		return -c
	}
	return c
}

// Sort sorts items in place by v. Equal items keep their relative order.
func Sort[T any](items []T, v Value) {
	slices.SortStableFunc(items, func(a, b T) int { return v.Compare(a, b) })
}

type custom struct {
	name string
	key  func(any) any
	dirs Directions
}

// Builder describes the ordering enumeration of one type. Builders are
// immutable; every method returns a new value.
type Builder struct {
	desc    *descriptor.Type
	name    string
	ignored map[string]bool
	customs []custom
	err     error
}

// For returns the default builder of desc.
func For(desc *descriptor.Type) *Builder {
	return &Builder{desc: desc, ignored: map[string]bool{}}
}

func (b *Builder) clone() *Builder {
	next := *b
	next.ignored = maps.Clone(b.ignored)
	next.customs = slices.Clone(b.customs)
	return &next
}

// Ignore excludes the property from the derived values.
func (b *Builder) Ignore(property string) *Builder {
	next := b.clone()
	next.ignored[property] = true
	return next
}

// Custom adds a value sorting by key in the given directions. A nil key is
// recorded as an error, see Err.
func (b *Builder) Custom(name string, key func(any) any, dirs Directions) *Builder {
	next := b.clone()
	if key == nil {
		if next.err == nil {
			next.err = fmt.Errorf("ordering value %q has no sort key", name)
		}
		return next
	}
	next.customs = append(next.customs, custom{name: name, key: key, dirs: dirs})
	return next
}

// Named overrides the enumeration name.
func (b *Builder) Named(name string) *Builder {
	next := b.clone()
	next.name = name
	return next
}

// Err returns the first configuration error of b.
func (b *Builder) Err() error { return b.err }

// Type returns the identity of the ordered type.
func (b *Builder) Type() descriptor.TypeID { return b.desc.ID }

// EnumName returns the enumeration name, <Type>OrderBy unless overridden.
func (b *Builder) EnumName() string {
	if b.name != "" {
		return b.name
	}
	return b.desc.SchemaName() + "OrderBy"
}

// Values lists the enumeration members: properties in declaration order, then
// custom values in the order they were added.
func (b *Builder) Values() []Value {
	var out []Value
	for _, p := range b.desc.Properties {
		if b.ignored[p.Name] || !sortable(p) {
			continue
		}
		key := strcase.ToLowerCamel(p.Name)
		out = append(out, pair(key, p.Get, Both)...)
	}
	for _, c := range b.customs {
		out = append(out, pair(c.name, c.key, c.dirs)...)
	}
	return out
}

// Lookup finds a member by name.
func (b *Builder) Lookup(name string) (Value, bool) {
	for _, v := range b.Values() {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

func pair(key string, get func(any) any, dirs Directions) []Value {
	var out []Value
	if dirs&AscOnly != 0 {
		out = append(out, Value{Name: key + "_ASC", Key: key, Direction: Asc, get: get})
	}
	if dirs&DescOnly != 0 {
		out = append(out, Value{Name: key + "_DESC", Key: key, Direction: Desc, get: get})
	}
	return out
}

func sortable(p descriptor.Property) bool {
	return p.Readable() && !p.Type.List
}

func compareAny(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case *time.Time:
		if y, ok := b.(*time.Time); ok && x != nil && y != nil {
			return x.Compare(*y)
		}
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
