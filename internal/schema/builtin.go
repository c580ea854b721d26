package schema

import "github.com/hanpama/graphkit/internal/scalar"

var builtinScalars = []*scalar.Scalar{&scalar.String, &scalar.Int, &scalar.Float, &scalar.Boolean, &scalar.ID}

// IsBuiltinScalar reports whether name is one of the scalars every GraphQL
// schema defines implicitly.
func IsBuiltinScalar(name string) bool {
	for _, s := range builtinScalars {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ScalarType returns a SCALAR node serialized by s.
func ScalarType(s *scalar.Scalar) *Type {
	t := NewType(s.Name, TypeKindScalar, s.Description)
	t.Scalar = s
	if s.SpecifiedByURL != "" {
		url := s.SpecifiedByURL
		t.SpecifiedByURL = &url
	}
	return t
}

// AddBuiltins registers the implicit scalars and the @include and @skip
// directives.
func (s *Schema) AddBuiltins() *Schema {
	for _, sc := range builtinScalars {
		if _, ok := s.Types[sc.Name]; !ok {
			s.AddType(ScalarType(sc))
		}
	}
	return s.AddDirective(includeDirective).AddDirective(skipDirective)
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}
