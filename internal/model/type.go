package model

import (
	"maps"
	"slices"

	"github.com/iancoleman/strcase"

	"github.com/hanpama/graphkit/internal/descriptor"
)

// TypeConfig is the configuration of one modeled type. Methods return
// modified copies; a TypeConfig is never changed in place.
type TypeConfig struct {
	ID          descriptor.TypeID
	Kind        descriptor.Kind
	Name        string
	InputName   string
	Description string

	ignored    map[string]bool
	interfaces []descriptor.TypeID
	fields     map[string]FieldConfig
	order      []string
}

// FieldName is the schema name of a property.
func FieldName(property string) string { return strcase.ToLowerCamel(property) }

// NewType returns the default configuration of desc: every property becomes
// an unconfigured field.
func NewType(desc *descriptor.Type) TypeConfig {
	t := TypeConfig{
		ID:          desc.ID,
		Kind:        desc.Kind,
		Name:        desc.SchemaName(),
		Description: desc.Description,
		ignored:     map[string]bool{},
		fields:      make(map[string]FieldConfig, len(desc.Properties)),
	}
	for _, p := range desc.Properties {
		t.fields[p.Name] = FieldConfig{
			Name:        FieldName(p.Name),
			Property:    p,
			Description: p.Description,
			Deprecation: p.Deprecation,
		}
		t.order = append(t.order, p.Name)
	}
	return t
}

func (t TypeConfig) clone() TypeConfig {
	t.ignored = maps.Clone(t.ignored)
	if t.ignored == nil {
		t.ignored = map[string]bool{}
	}
	t.fields = maps.Clone(t.fields)
	if t.fields == nil {
		t.fields = map[string]FieldConfig{}
	}
	t.interfaces = slices.Clone(t.interfaces)
	t.order = slices.Clone(t.order)
	return t
}

// Named sets the output type name.
func (t TypeConfig) Named(name string) TypeConfig {
	t.Name = name
	return t
}

// InputNamed sets the name used when the type appears in argument position.
func (t TypeConfig) InputNamed(name string) TypeConfig {
	t.InputName = name
	return t
}

func (t TypeConfig) Describe(description string) TypeConfig {
	t.Description = description
	return t
}

// IgnoreProperty removes the property from the compiled type.
func (t TypeConfig) IgnoreProperty(property string) TypeConfig {
	next := t.clone()
	next.ignored[property] = true
	return next
}

// ConfigureField applies fn to the field backed by property. An unknown name
// creates a computed field, which compiles only once a resolver is attached.
func (t TypeConfig) ConfigureField(property string, fn func(FieldConfig) FieldConfig) TypeConfig {
	next := t.clone()
	f, ok := next.fields[property]
	if !ok {
		f = FieldConfig{
			Name:     FieldName(property),
			Property: descriptor.Property{Name: property},
			Computed: true,
		}
		next.order = append(next.order, property)
	}
	next.fields[property] = fn(f)
	return next
}

// NonNull forces the field non-null.
func (t TypeConfig) NonNull(property string) TypeConfig {
	return t.ConfigureField(property, func(f FieldConfig) FieldConfig { return f.WithNullability(NonNull) })
}

// Nullable forces the field nullable.
func (t TypeConfig) Nullable(property string) TypeConfig {
	return t.ConfigureField(property, func(f FieldConfig) FieldConfig { return f.WithNullability(Nullable) })
}

// Interface declares that the type implements the interface id.
func (t TypeConfig) Interface(id descriptor.TypeID) TypeConfig {
	if slices.Contains(t.interfaces, id) {
		return t
	}
	next := t.clone()
	next.interfaces = append(next.interfaces, id)
	return next
}

// Interfaces lists the declared interfaces in declaration order.
func (t TypeConfig) Interfaces() []descriptor.TypeID { return slices.Clone(t.interfaces) }

// Implements reports whether the type declares the interface id.
func (t TypeConfig) Implements(id descriptor.TypeID) bool { return slices.Contains(t.interfaces, id) }

// Field returns the configuration of the field backed by property.
func (t TypeConfig) Field(property string) (FieldConfig, bool) {
	f, ok := t.fields[property]
	return f, ok
}

// Ignored reports whether property was ignored.
func (t TypeConfig) Ignored(property string) bool { return t.ignored[property] }

// Relevant lists the fields that are not ignored, in declaration order.
func (t TypeConfig) Relevant() []FieldConfig {
	out := make([]FieldConfig, 0, len(t.order))
	for _, name := range t.order {
		if t.ignored[name] {
			continue
		}
		out = append(out, t.fields[name])
	}
	return out
}

// InputSchemaName is the name of the type in argument position.
func (t TypeConfig) InputSchemaName() string {
	if t.InputName != "" {
		return t.InputName
	}
	return t.Name + "Input"
}
