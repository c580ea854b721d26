// Package introspection adds the __schema and __type root fields to a
// compiled schema. The introspection types are ordinary object types whose
// fields resolve synchronously from the schema graph.
package introspection

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/hanpama/graphkit/internal/schema"
)

// Extend returns a copy of s whose query type also serves __schema and
// __type. s itself is not modified.
func Extend(s *schema.Schema) *schema.Schema {
	out := schema.NewSchema(s.Description)
	out.QueryType = s.QueryType
	out.MutationType = s.MutationType
	maps.Copy(out.Types, s.Types)
	maps.Copy(out.Directives, s.Directives)

	r := &reflector{schema: out}
	for _, t := range r.types() {
		out.AddType(t)
	}

	if q := s.GetQueryType(); q != nil {
		root := *q
		root.Fields = append(slices.Clone(q.Fields),
			field("__schema", nonNull(named("__Schema")), func(any, map[string]any) any { return out }).
				describe("Access the current type schema of this server."),
			field("__type", named("__Type"), func(_ any, args map[string]any) any {
				name, _ := args["name"].(string)
				if _, ok := out.Types[name]; !ok {
					return nil
				}
				return schema.NamedType(name)
			}, &schema.InputValue{Name: "name", Type: nonNull(named("String"))}).
				describe("Request the type information of a single type."),
		)
		out.AddType(&root)
	}
	return out
}

type reflector struct {
	schema *schema.Schema
}

func (r *reflector) types() []*schema.Type {
	includeDeprecated := &schema.InputValue{Name: "includeDeprecated", Type: named("Boolean"), DefaultValue: false}
	typeList := nonNull(list(nonNull(named("__Type"))))
	inputList := nonNull(list(nonNull(named("__InputValue"))))

	return []*schema.Type{
		object("__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.",
			field("description", named("String"), func(src any, _ map[string]any) any {
				return optional(src.(*schema.Schema).Description)
			}),
			field("types", typeList, func(any, map[string]any) any { return r.allTypes() }),
			field("queryType", nonNull(named("__Type")), func(src any, _ map[string]any) any {
				return schema.NamedType(src.(*schema.Schema).QueryType)
			}),
			field("mutationType", named("__Type"), func(src any, _ map[string]any) any {
				if name := src.(*schema.Schema).MutationType; name != "" {
					return schema.NamedType(name)
				}
				return nil
			}),
			field("subscriptionType", named("__Type"), func(any, map[string]any) any { return nil }),
			field("directives", nonNull(list(nonNull(named("__Directive")))), func(src any, _ map[string]any) any {
				dirs := src.(*schema.Schema).Directives
				out := make([]*schema.Directive, 0, len(dirs))
				for _, name := range slices.Sorted(maps.Keys(dirs)) {
					out = append(out, dirs[name])
				}
				return out
			}),
		),

		object("__Type", "The fundamental unit of any GraphQL Schema is the type.",
			field("kind", nonNull(named("__TypeKind")), func(src any, _ map[string]any) any {
				ref := src.(*schema.TypeRef)
				if t := r.named(ref); t != nil {
					return string(t.Kind)
				}
				return string(ref.Kind)
			}),
			field("name", named("String"), func(src any, _ map[string]any) any {
				if t := r.named(src.(*schema.TypeRef)); t != nil {
					return t.Name
				}
				return nil
			}),
			field("description", named("String"), func(src any, _ map[string]any) any {
				if t := r.named(src.(*schema.TypeRef)); t != nil {
					return optional(t.Description)
				}
				return nil
			}),
			field("specifiedByURL", named("String"), func(src any, _ map[string]any) any {
				if t := r.named(src.(*schema.TypeRef)); t != nil && t.SpecifiedByURL != nil {
					return *t.SpecifiedByURL
				}
				return nil
			}),
			field("fields", list(nonNull(named("__Field"))), func(src any, args map[string]any) any {
				t := r.named(src.(*schema.TypeRef))
				if t == nil || (t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface) {
					return nil
				}
				out := []*schema.Field{}
				for _, f := range t.Fields {
					if strings.HasPrefix(f.Name, "__") || (f.IsDeprecated && !deprecated(args)) {
						continue
					}
					out = append(out, f)
				}
				return out
			}, includeDeprecated),
			field("interfaces", list(nonNull(named("__Type"))), func(src any, _ map[string]any) any {
				t := r.named(src.(*schema.TypeRef))
				if t == nil || (t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface) {
					return nil
				}
				return refs(t.Interfaces)
			}),
			field("possibleTypes", list(nonNull(named("__Type"))), func(src any, _ map[string]any) any {
				t := r.named(src.(*schema.TypeRef))
				if t == nil || (t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion) {
					return nil
				}
				return refs(t.PossibleTypes)
			}),
			field("enumValues", list(nonNull(named("__EnumValue"))), func(src any, args map[string]any) any {
				t := r.named(src.(*schema.TypeRef))
				if t == nil || t.Kind != schema.TypeKindEnum {
					return nil
				}
				out := []*schema.EnumValue{}
				for _, v := range t.EnumValues {
					if !v.IsDeprecated || deprecated(args) {
						out = append(out, v)
					}
				}
				return out
			}, includeDeprecated),
			field("inputFields", list(nonNull(named("__InputValue"))), func(src any, args map[string]any) any {
				t := r.named(src.(*schema.TypeRef))
				if t == nil || t.Kind != schema.TypeKindInputObject {
					return nil
				}
				return inputValues(t.InputFields, args)
			}, includeDeprecated),
			field("ofType", named("__Type"), func(src any, _ map[string]any) any {
				if ref := src.(*schema.TypeRef); ref.Kind != schema.TypeRefKindNamed {
					return ref.OfType
				}
				return nil
			}),
			field("isOneOf", named("Boolean"), func(src any, _ map[string]any) any {
				if t := r.named(src.(*schema.TypeRef)); t != nil && t.Kind == schema.TypeKindInputObject {
					return false
				}
				return nil
			}),
		),

		object("__Field", "",
			field("name", nonNull(named("String")), func(src any, _ map[string]any) any { return src.(*schema.Field).Name }),
			field("description", named("String"), func(src any, _ map[string]any) any {
				return optional(src.(*schema.Field).Description)
			}),
			field("args", inputList, func(src any, args map[string]any) any {
				return inputValues(src.(*schema.Field).Arguments, args)
			}, includeDeprecated),
			field("type", nonNull(named("__Type")), func(src any, _ map[string]any) any { return src.(*schema.Field).Type }),
			field("isDeprecated", nonNull(named("Boolean")), func(src any, _ map[string]any) any {
				return src.(*schema.Field).IsDeprecated
			}),
			field("deprecationReason", named("String"), func(src any, _ map[string]any) any {
				f := src.(*schema.Field)
				return reason(f.IsDeprecated, f.DeprecationReason)
			}),
		),

		object("__InputValue", "",
			field("name", nonNull(named("String")), func(src any, _ map[string]any) any { return src.(*schema.InputValue).Name }),
			field("description", named("String"), func(src any, _ map[string]any) any {
				return optional(src.(*schema.InputValue).Description)
			}),
			field("type", nonNull(named("__Type")), func(src any, _ map[string]any) any { return src.(*schema.InputValue).Type }),
			field("defaultValue", named("String"), func(src any, _ map[string]any) any {
				if v := src.(*schema.InputValue).DefaultValue; v != nil {
					return schema.RenderValue(v)
				}
				return nil
			}),
			field("isDeprecated", nonNull(named("Boolean")), func(src any, _ map[string]any) any {
				return src.(*schema.InputValue).IsDeprecated
			}),
			field("deprecationReason", named("String"), func(src any, _ map[string]any) any {
				v := src.(*schema.InputValue)
				return reason(v.IsDeprecated, v.DeprecationReason)
			}),
		),

		object("__EnumValue", "",
			field("name", nonNull(named("String")), func(src any, _ map[string]any) any { return src.(*schema.EnumValue).Name }),
			field("description", named("String"), func(src any, _ map[string]any) any {
				return optional(src.(*schema.EnumValue).Description)
			}),
			field("isDeprecated", nonNull(named("Boolean")), func(src any, _ map[string]any) any {
				return src.(*schema.EnumValue).IsDeprecated
			}),
			field("deprecationReason", named("String"), func(src any, _ map[string]any) any {
				v := src.(*schema.EnumValue)
				return reason(v.IsDeprecated, v.DeprecationReason)
			}),
		),

		object("__Directive", "",
			field("name", nonNull(named("String")), func(src any, _ map[string]any) any { return src.(*schema.Directive).Name }),
			field("description", named("String"), func(src any, _ map[string]any) any {
				return optional(src.(*schema.Directive).Description)
			}),
			field("isRepeatable", nonNull(named("Boolean")), func(src any, _ map[string]any) any {
				return src.(*schema.Directive).IsRepeatable
			}),
			field("locations", nonNull(list(nonNull(named("__DirectiveLocation")))), func(src any, _ map[string]any) any {
				return src.(*schema.Directive).Locations
			}),
			field("args", inputList, func(src any, args map[string]any) any {
				return inputValues(src.(*schema.Directive).Arguments, args)
			}, includeDeprecated),
		),

		enum("__TypeKind",
			"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),
		enum("__DirectiveLocation",
			"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
			"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
			"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
			"INPUT_FIELD_DEFINITION"),
	}
}

// named returns the node of a named reference, or nil for wrappers.
func (r *reflector) named(ref *schema.TypeRef) *schema.Type {
	if ref.Kind != schema.TypeRefKindNamed {
		return nil
	}
	return r.schema.Types[ref.Named]
}

func (r *reflector) allTypes() []*schema.TypeRef {
	return refs(slices.Sorted(maps.Keys(r.schema.Types)))
}

func refs(names []string) []*schema.TypeRef {
	out := make([]*schema.TypeRef, len(names))
	for i, name := range names {
		out[i] = schema.NamedType(name)
	}
	return out
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if !v.IsDeprecated || deprecated(args) {
			out = append(out, v)
		}
	}
	return out
}

func deprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(isDeprecated bool, why string) any {
	if isDeprecated {
		return why
	}
	return nil
}

type introField struct{ *schema.Field }

func (f introField) describe(desc string) *schema.Field {
	f.Description = desc
	return f.Field
}

func field(name string, typ *schema.TypeRef, get func(source any, args map[string]any) any, args ...*schema.InputValue) introField {
	return introField{&schema.Field{
		Name:      name,
		Type:      typ,
		Arguments: args,
		Resolve: func(_ context.Context, source any, args map[string]any) (any, error) {
			return get(source, args), nil
		},
	}}
}

func object(name, desc string, fields ...introField) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, desc)
	for _, f := range fields {
		t.AddField(f.Field)
	}
	return t
}

func enum(name string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(&schema.EnumValue{Name: v, Value: v})
	}
	return t
}

func named(name string) *schema.TypeRef        { return schema.NamedType(name) }
func nonNull(t *schema.TypeRef) *schema.TypeRef { return schema.NonNullType(t) }
func list(t *schema.TypeRef) *schema.TypeRef    { return schema.ListType(t) }
