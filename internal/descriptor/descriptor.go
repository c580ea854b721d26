// Package descriptor describes modeled Go types without reflection.
//
// A model author declares one Type per modeled type, listing its properties
// together with getter closures. The resulting Table is built once at startup
// and is the only source the configuration builder and compiler consult when
// they need to enumerate the fields of a type.
package descriptor

import (
	"fmt"
	"strings"
)

// TypeID is the fully qualified identity of a modeled type, e.g. "shop.Product".
type TypeID string

// Name returns the last dot-separated segment of the identity.
func (id TypeID) Name() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Builtin value type identities. Nullable counterparts are spelled with a
// leading '*' (see Nullable).
const (
	String  TypeID = "string"
	Int     TypeID = "int"
	Int32   TypeID = "int32"
	Int64   TypeID = "int64"
	Float32 TypeID = "float32"
	Float64 TypeID = "float64"
	Bool    TypeID = "bool"
	ID      TypeID = "id"
	Time    TypeID = "time.Time"
	UUID    TypeID = "uuid.UUID"
)

// Nullable returns the identity of the nullable counterpart of a value type.
func Nullable(id TypeID) TypeID {
	if strings.HasPrefix(string(id), "*") {
		return id
	}
	return "*" + id
}

// Kind classifies a described type.
type Kind int

const (
	KindObject Kind = iota
	KindInterface
	KindEnum
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "OBJECT"
	case KindInterface:
		return "INTERFACE"
	case KindEnum:
		return "ENUM"
	case KindScalar:
		return "SCALAR"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// TypeRef is a declared value type: an element identity, optionally wrapped in
// a list, with nullability hints for the outer value and list elements.
type TypeRef struct {
	ID           TypeID
	List         bool
	Nullable     bool
	ElemNullable bool
}

// Of refers to a non-null value of id.
func Of(id TypeID) TypeRef { return TypeRef{ID: id} }

// Opt refers to a nullable value of id.
func Opt(id TypeID) TypeRef { return TypeRef{ID: id, Nullable: true} }

// ListOf refers to a non-null list of non-null id values.
func ListOf(id TypeID) TypeRef { return TypeRef{ID: id, List: true} }

// Elem returns the core element identity, unwrapped of list and nullability.
func (r TypeRef) Elem() TypeID { return TypeID(strings.TrimPrefix(string(r.ID), "*")) }

// AsNullable returns a copy with the outer value marked nullable.
func (r TypeRef) AsNullable() TypeRef {
	r.Nullable = true
	return r
}

func (r TypeRef) String() string {
	s := string(r.ID)
	if r.List {
		if !r.ElemNullable {
			s += "!"
		}
		s = "[" + s + "]"
	}
	if !r.Nullable {
		s += "!"
	}
	return s
}

// Property is one declared member of a modeled type.
type Property struct {
	Name        string
	Type        TypeRef
	Description string
	Deprecation string
	// Get reads the property off a source value. Nil means the property is
	// not readable and must be served by a resolver.
	Get func(source any) any
}

// Readable reports whether the property can be read off a source value.
func (p Property) Readable() bool { return p.Get != nil }

// EnumValue is one member of an enumeration type.
type EnumValue struct {
	Name        string
	Value       any
	Description string
	Deprecation string
}

// Type describes one modeled type.
type Type struct {
	ID          TypeID
	Name        string
	Kind        Kind
	Description string
	Properties  []Property
	EnumValues  []EnumValue
	// Tag reports the concrete type of a value held in an interface position.
	Tag func(value any) TypeID
}

// SchemaName returns the declared name, or the identity's last segment.
func (t *Type) SchemaName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID.Name()
}

// Property returns the property with the given name.
func (t *Type) Property(name string) (Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Tagged is implemented by values that report their own concrete type.
type Tagged interface {
	GraphTypeID() TypeID
}

// TagOf resolves the concrete type of value, consulting Tagged first and the
// interface descriptor's Tag function second.
func TagOf(iface *Type, value any) (TypeID, bool) {
	if t, ok := value.(Tagged); ok {
		return t.GraphTypeID(), true
	}
	if iface != nil && iface.Tag != nil {
		if id := iface.Tag(value); id != "" {
			return id, true
		}
	}
	return "", false
}
