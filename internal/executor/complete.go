package executor

import (
	"fmt"
	"reflect"

	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/schema"
)

func (s *executionState) completeValue(t *schema.TypeRef, fields []*gql.Field, result any, path Path) any {
	if t.IsNonNull() {
		if isNullish(result) {
			if !s.hasErrorAt(path) {
				s.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path), path)
			}
			return nil
		}
		return s.completeValue(t.OfType, fields, result, path)
	}
	if isNullish(result) {
		return nil
	}
	if t.Kind == schema.TypeRefKindList {
		return s.completeList(t.OfType, fields, result, path)
	}

	name := t.GetNamedType()
	named := s.schema.Types[name]
	if named == nil {
		s.addError(fmt.Sprintf("unknown type %s", name), path)
		return nil
	}
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := s.runtime.SerializeLeafValue(s.ctx, name, result)
		if err != nil {
			s.addError(err.Error(), path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return s.completeObject(named, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete, err := s.runtime.ResolveType(s.ctx, name, result)
		if err != nil {
			s.addError(err.Error(), path)
			return nil
		}
		object := s.schema.Types[concrete]
		if object == nil || object.Kind != schema.TypeKindObject || !named.IsPossibleType(concrete) {
			s.addError(fmt.Sprintf("abstract type %s must resolve to one of its object types, got %q", name, concrete), path)
			return nil
		}
		return s.completeObject(object, fields, result, path)
	}
	s.addError(fmt.Sprintf("cannot complete a value of kind %s", named.Kind), path)
	return nil
}

// completeList accepts []any and any other slice or array.
func (s *executionState) completeList(elem *schema.TypeRef, fields []*gql.Field, result any, path Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			s.addError(fmt.Sprintf("expected a list, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	out := make([]any, len(items))
	for i, item := range items {
		if elem.IsNonNull() {
			s.require(path.with(i))
		}
		v := s.completeValue(elem, fields, item, path.with(i))
		if isNullish(v) && elem.IsNonNull() {
			return nil
		}
		out[i] = v
	}
	return out
}

func (s *executionState) completeObject(object *schema.Type, fields []*gql.Field, result any, path Path) any {
	var set gql.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	if m := s.executeSelectionSet(object, result, set, path); m != nil {
		return m
	}
	return nil
}

func (s *executionState) hasErrorAt(path Path) bool {
	for _, e := range s.errors {
		if e.Path.String() == path.String() {
			return true
		}
	}
	return false
}

// isNullish reports nil interfaces and nil pointers, maps and funcs. Nil
// slices are empty lists, not null.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
