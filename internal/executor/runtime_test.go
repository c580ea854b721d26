package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/schema"
)

type resolverFunc func(source any, args map[string]any) (any, error)

// recordingRuntime resolves "Type.field" keys and records how it was called.
type recordingRuntime struct {
	resolvers map[string]resolverFunc
	log       []string
	batches   [][]string
}

func newRecordingRuntime(resolvers map[string]resolverFunc) *recordingRuntime {
	return &recordingRuntime{resolvers: resolvers}
}

func (r *recordingRuntime) call(objectType, field string, source any, args map[string]any) (any, error) {
	key := objectType + "." + field
	r.log = append(r.log, key)
	fn, ok := r.resolvers[key]
	if !ok {
		return nil, fmt.Errorf("no resolver for %s", key)
	}
	return fn(source, args)
}

func (r *recordingRuntime) ResolveSync(_ context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return r.call(objectType, field, source, args)
}

func (r *recordingRuntime) BatchResolveAsync(_ context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	keys := make([]string, len(tasks))
	out := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		keys[i] = t.ObjectType + "." + t.Field
		v, err := r.call(t.ObjectType, t.Field, t.Source, t.Args)
		out[i] = AsyncResolveResult{Value: v, Error: err}
	}
	r.batches = append(r.batches, keys)
	return out
}

func (r *recordingRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve %s for %T", abstractType, value)
}

func (r *recordingRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func (r *recordingRuntime) ParseLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

// prop reads key from a map source.
func prop(key string) resolverFunc {
	return func(source any, _ map[string]any) (any, error) {
		return source.(map[string]any)[key], nil
	}
}

func constant(v any) resolverFunc {
	return func(any, map[string]any) (any, error) { return v, nil }
}

func failing(msg string) resolverFunc {
	return func(any, map[string]any) (any, error) { return nil, fmt.Errorf("%s", msg) }
}

func object(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func field(name string, t *schema.TypeRef, args ...*schema.InputValue) *schema.Field {
	return &schema.Field{Name: name, Type: t, Arguments: args}
}

func async(f *schema.Field) *schema.Field {
	f.Async = true
	return f
}

func named(name string) *schema.TypeRef   { return schema.NamedType(name) }
func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

func newTestSchema(types ...*schema.Type) *schema.Schema {
	s := schema.NewSchema("")
	for _, t := range types {
		s.AddType(t)
	}
	s.AddBuiltins()
	s.SetQueryType("Query")
	if _, ok := s.Types["Mutation"]; ok {
		s.SetMutationType("Mutation")
	}
	return s
}

func mustParse(t *testing.T, query string) *gql.QueryDocument {
	t.Helper()
	doc, err := gql.ParseQuery(query)
	require.NoError(t, err)
	return doc
}
