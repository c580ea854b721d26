package engine

import (
	"context"
	"fmt"

	"github.com/hanpama/graphkit/internal/executor"
	"github.com/hanpama/graphkit/internal/loader"
	"github.com/hanpama/graphkit/internal/schema"
)

// runtime resolves fields through the resolvers of a compiled schema. One
// runtime serves one request.
type runtime struct {
	schema     *schema.Schema
	dispatcher *loader.Dispatcher
}

var _ executor.Runtime = (*runtime)(nil)

func (r *runtime) field(objectType, name string) (*schema.Field, error) {
	t := r.schema.Types[objectType]
	if t == nil {
		return nil, fmt.Errorf("unknown type %s", objectType)
	}
	f := t.Field(name)
	if f == nil || f.Resolve == nil {
		return nil, fmt.Errorf("%s.%s has no resolver", objectType, name)
	}
	return f, nil
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	f, err := r.field(objectType, field)
	if err != nil {
		return nil, err
	}
	v, err := f.Resolve(ctx, source, args)
	if err != nil {
		return nil, err
	}
	if d, ok := v.(loader.Deferred); ok {
		r.dispatcher.Drain(ctx)
		return d.Value()
	}
	return v, nil
}

// BatchResolveAsync runs one wave: every task's resolver is invoked first,
// so batched loads of the wave queue up together, then the dispatcher is
// drained and the deferred results are settled.
func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	deferred := make([]loader.Deferred, len(tasks))
	for i, t := range tasks {
		f, err := r.field(t.ObjectType, t.Field)
		if err != nil {
			results[i].Error = err
			continue
		}
		v, err := f.Resolve(ctx, t.Source, t.Args)
		if err != nil {
			results[i].Error = err
			continue
		}
		if d, ok := v.(loader.Deferred); ok {
			deferred[i] = d
			continue
		}
		results[i].Value = v
	}

	r.dispatcher.Drain(ctx)
	for i, d := range deferred {
		if d != nil {
			results[i].Value, results[i].Error = d.Value()
		}
	}
	return results
}

func (r *runtime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	t := r.schema.Types[abstractType]
	if t == nil || t.ResolveType == nil {
		return "", fmt.Errorf("cannot resolve the concrete type of %s", abstractType)
	}
	return t.ResolveType(value)
}

func (r *runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	t := r.schema.Types[typeName]
	if t == nil {
		return nil, fmt.Errorf("unknown type %s", typeName)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		if v, ok := t.EnumValueOf(value); ok {
			return v.Name, nil
		}
		if s, ok := value.(string); ok {
			for _, v := range t.EnumValues {
				if v.Name == s {
					return s, nil
				}
			}
		}
		return nil, fmt.Errorf("%v is not a value of enum %s", value, typeName)
	case schema.TypeKindScalar:
		if t.Scalar == nil || t.Scalar.Serialize == nil {
			return value, nil
		}
		return t.Scalar.Serialize(value)
	}
	return nil, fmt.Errorf("%s is not a leaf type", typeName)
}

func (r *runtime) ParseLeafValue(_ context.Context, typeName string, value any) (any, error) {
	t := r.schema.Types[typeName]
	if t == nil || t.Scalar == nil || t.Scalar.Parse == nil {
		return value, nil
	}
	return t.Scalar.Parse(value)
}
