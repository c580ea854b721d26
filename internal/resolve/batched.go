package resolve

import (
	"context"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/loader"
	"github.com/hanpama/graphkit/internal/services"
)

// load queues key on the request dispatcher under the batch (id, args).
// absent supplies the value of keys the fetch did not return.
func load[K comparable, V any](
	ctx context.Context,
	batch loader.Key,
	key K,
	get func(ctx context.Context, keys []K) (map[K]V, error),
	absent func() any,
) (any, error) {
	d, ok := loader.FromContext(ctx)
	if !ok {
		return nil, loader.ErrNoDispatcher
	}
	fetch := func(ctx context.Context, keys []any) (map[any]any, error) {
		typed := make([]K, len(keys))
		for i, k := range keys {
			typed[i] = k.(K)
		}
		data, err := get(ctx, typed)
		if err != nil {
			return nil, err
		}
		out := make(map[any]any, len(data))
		for k, v := range data {
			out[k] = v
		}
		return out, nil
	}
	return d.Load(batch, key, fetch).Then(func(v any, found bool) (any, error) {
		if !found {
			return absent(), nil
		}
		return v, nil
	}), nil
}

func null() any { return nil }

func emptyList[T any]() func() any {
	return func() any { return []T{} }
}

// filled replaces nil lists in the fetched data with empty ones.
func filled[K comparable, T any](get func(ctx context.Context, keys []K) (map[K][]T, error)) func(ctx context.Context, keys []K) (map[K][]T, error) {
	return func(ctx context.Context, keys []K) (map[K][]T, error) {
		data, err := get(ctx, keys)
		for k, v := range data {
			if v == nil {
				data[k] = []T{}
			}
		}
		return data, err
	}
}

type batched[K comparable, T any] struct {
	base
	id  loader.ID
	key services.Key[BatchResolver[K, T]]
}

// Batched coalesces the keys of every parent resolved in one wave into a
// single GetData call. The field is nullable; a key missing from the result
// resolves to null.
func Batched[K comparable, T any](key services.Key[BatchResolver[K, T]], elem descriptor.TypeID) Config {
	return batched[K, T]{
		base: base{kind: KindBatched, service: key.Name(), returns: descriptor.Opt(elem)},
		id:   loader.NewID(),
		key:  key,
	}
}

func (c batched[K, T]) Resolver(f Field) Func {
	name := f.Path()
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		return load(ctx, loader.Key{ID: c.id, Name: name}, r.GetKey(p.Source), r.GetData, null)
	}
}

type batchedArgs[K comparable, T, A any] struct {
	base
	id  loader.ID
	key services.Key[BatchArgsResolver[K, T, A]]
}

// BatchedWithArgs is Batched with arguments. Parents are batched together
// only when their arguments are equal.
func BatchedWithArgs[K comparable, T, A any](key services.Key[BatchArgsResolver[K, T, A]], elem descriptor.TypeID, args descriptor.TypeID) Config {
	return batchedArgs[K, T, A]{
		base: base{kind: KindBatchedWithArgs, service: key.Name(), returns: descriptor.Opt(elem), argsType: args},
		id:   loader.NewID(),
		key:  key,
	}
}

func (c batchedArgs[K, T, A]) Resolver(f Field) Func {
	name := f.Path()
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		args, err := decodeArgs[A](p.Args)
		if err != nil {
			return nil, err
		}
		fp, err := fingerprint(p.Args)
		if err != nil {
			return nil, err
		}
		get := func(ctx context.Context, keys []K) (map[K]T, error) { return r.GetData(ctx, keys, args) }
		return load(ctx, loader.Key{ID: c.id, Name: name, Args: fp}, r.GetKey(p.Source), get, null)
	}
}

type lookup[K comparable, T any] struct {
	base
	id  loader.ID
	key services.Key[LookupResolver[K, T]]
}

// ListBatched coalesces keys like Batched, loading a list per key. A key
// missing from the result resolves to an empty list.
func ListBatched[K comparable, T any](key services.Key[LookupResolver[K, T]], elem descriptor.TypeID) Config {
	return lookup[K, T]{
		base: base{kind: KindListBatched, service: key.Name(), returns: descriptor.ListOf(elem)},
		id:   loader.NewID(),
		key:  key,
	}
}

func (c lookup[K, T]) Resolver(f Field) Func {
	name := f.Path()
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		return load(ctx, loader.Key{ID: c.id, Name: name}, r.GetKey(p.Source), filled(r.GetData), emptyList[T]())
	}
}

type lookupArgs[K comparable, T, A any] struct {
	base
	id  loader.ID
	key services.Key[LookupArgsResolver[K, T, A]]
}

// ListBatchedWithArgs is ListBatched with arguments.
func ListBatchedWithArgs[K comparable, T, A any](key services.Key[LookupArgsResolver[K, T, A]], elem descriptor.TypeID, args descriptor.TypeID) Config {
	return lookupArgs[K, T, A]{
		base: base{kind: KindListBatchedWithArgs, service: key.Name(), returns: descriptor.ListOf(elem), argsType: args},
		id:   loader.NewID(),
		key:  key,
	}
}

func (c lookupArgs[K, T, A]) Resolver(f Field) Func {
	name := f.Path()
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		args, err := decodeArgs[A](p.Args)
		if err != nil {
			return nil, err
		}
		fp, err := fingerprint(p.Args)
		if err != nil {
			return nil, err
		}
		get := func(ctx context.Context, keys []K) (map[K][]T, error) { return r.GetData(ctx, keys, args) }
		return load(ctx, loader.Key{ID: c.id, Name: name, Args: fp}, r.GetKey(p.Source), filled(get), emptyList[T]())
	}
}
