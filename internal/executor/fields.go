package executor

import (
	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/schema"
)

// fieldGroup is every field node sharing one response key, in document
// order.
type fieldGroup struct {
	key    string
	fields []*gql.Field
}

func (s *executionState) collectFields(objectType *schema.Type, set gql.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := map[string]int{}
	visited := map[string]bool{}

	var collect func(set gql.SelectionSet)
	collect = func(set gql.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *gql.Field:
				if !s.included(sel.Directives) {
					continue
				}
				key := sel.Alias
				if key == "" {
					key = sel.Name
				}
				if i, ok := index[key]; ok {
					groups[i].fields = append(groups[i].fields, sel)
					continue
				}
				index[key] = len(groups)
				groups = append(groups, fieldGroup{key: key, fields: []*gql.Field{sel}})

			case *gql.InlineFragment:
				if !s.included(sel.Directives) || !s.applies(objectType, sel.TypeCondition) {
					continue
				}
				collect(sel.SelectionSet)

			case *gql.FragmentSpread:
				if visited[sel.Name] || !s.included(sel.Directives) {
					continue
				}
				visited[sel.Name] = true
				def := s.document.Fragments.ForName(sel.Name)
				if def == nil || !s.applies(objectType, def.TypeCondition) {
					continue
				}
				collect(def.SelectionSet)
			}
		}
	}
	collect(set)
	return groups
}

// applies reports whether a fragment with the type condition cond selects
// fields of objectType.
func (s *executionState) applies(objectType *schema.Type, cond string) bool {
	if cond == "" || cond == objectType.Name {
		return true
	}
	t := s.schema.Types[cond]
	if t == nil {
		return false
	}
	switch t.Kind {
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return t.IsPossibleType(objectType.Name)
	}
	return false
}

// included evaluates @skip and @include.
func (s *executionState) included(directives gql.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && s.directiveFlag(d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !s.directiveFlag(d) {
		return false
	}
	return true
}

func (s *executionState) directiveFlag(d *gql.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(s.variables)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
