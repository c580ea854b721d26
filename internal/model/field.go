package model

import (
	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/guard"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/resolve"
)

// Nullability overrides the default nullability of a field.
type Nullability int

const (
	Unspecified Nullability = iota
	NonNull
	Nullable
)

func (n Nullability) String() string {
	switch n {
	case NonNull:
		return "non-null"
	case Nullable:
		return "nullable"
	}
	return "unspecified"
}

// FieldConfig is the configuration of one field. Methods return modified
// copies.
type FieldConfig struct {
	// Name is the schema field name.
	Name     string
	Property descriptor.Property
	// Computed is set for fields that have no backing property.
	Computed    bool
	Nullability Nullability
	Resolver    resolve.Config
	OrderBy     *ordering.Builder
	Guard       guard.Guard
	Description string
	Deprecation string
}

func (f FieldConfig) WithNullability(n Nullability) FieldConfig {
	f.Nullability = n
	return f
}

func (f FieldConfig) WithResolver(r resolve.Config) FieldConfig {
	f.Resolver = r
	return f
}

func (f FieldConfig) WithOrderBy(o *ordering.Builder) FieldConfig {
	f.OrderBy = o
	return f
}

func (f FieldConfig) WithGuard(g guard.Guard) FieldConfig {
	f.Guard = g
	return f
}

func (f FieldConfig) WithDescription(d string) FieldConfig {
	f.Description = d
	return f
}

// Deprecated marks the field deprecated with reason.
func (f FieldConfig) Deprecated(reason string) FieldConfig {
	f.Deprecation = reason
	return f
}

// Renamed changes the schema field name.
func (f FieldConfig) Renamed(name string) FieldConfig {
	f.Name = name
	return f
}

// ArgumentsType is the input type the field's arguments derive from.
func (f FieldConfig) ArgumentsType() (descriptor.TypeID, bool) {
	if f.Resolver == nil {
		return "", false
	}
	return f.Resolver.ArgumentsType()
}

// Guarded reports whether an active guard is attached.
func (f FieldConfig) Guarded() bool { return f.Guard != nil && f.Guard.Active() }

// Returns is the declared value type: the resolver's when one is attached,
// the property's otherwise.
func (f FieldConfig) Returns() descriptor.TypeRef {
	if f.Resolver != nil {
		return f.Resolver.Returns()
	}
	return f.Property.Type
}
