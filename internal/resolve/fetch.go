package resolve

import "context"

// Resolver computes a value for one parent.
type Resolver[T any] interface {
	Resolve(ctx context.Context, parent any) (T, error)
}

// ArgsResolver computes a value for one parent and its arguments.
type ArgsResolver[T, A any] interface {
	Resolve(ctx context.Context, parent any, args A) (T, error)
}

// BatchResolver loads values for many parents at once. Keys missing from the
// result resolve to null.
type BatchResolver[K comparable, T any] interface {
	GetKey(parent any) K
	GetData(ctx context.Context, keys []K) (map[K]T, error)
}

// BatchArgsResolver is a BatchResolver whose fetch also receives the field
// arguments. Parents with different arguments are never fetched together.
type BatchArgsResolver[K comparable, T, A any] interface {
	GetKey(parent any) K
	GetData(ctx context.Context, keys []K, args A) (map[K]T, error)
}

// LookupResolver loads a list of values per key. Keys missing from the result
// resolve to an empty list.
type LookupResolver[K comparable, T any] interface {
	GetKey(parent any) K
	GetData(ctx context.Context, keys []K) (map[K][]T, error)
}

// LookupArgsResolver is a LookupResolver receiving the field arguments.
type LookupArgsResolver[K comparable, T, A any] interface {
	GetKey(parent any) K
	GetData(ctx context.Context, keys []K, args A) (map[K][]T, error)
}

// ConnectionResolver serves one page of a paginated list.
type ConnectionResolver[T any] interface {
	Resolve(ctx context.Context, parent any, req PageRequest) (Page[T], error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[T any] func(ctx context.Context, parent any) (T, error)

func (f ResolverFunc[T]) Resolve(ctx context.Context, parent any) (T, error) { return f(ctx, parent) }

// ArgsResolverFunc adapts a function to ArgsResolver.
type ArgsResolverFunc[T, A any] func(ctx context.Context, parent any, args A) (T, error)

func (f ArgsResolverFunc[T, A]) Resolve(ctx context.Context, parent any, args A) (T, error) {
	return f(ctx, parent, args)
}

// BatchFuncs adapts a key function and a fetch function to BatchResolver.
type BatchFuncs[K comparable, T any] struct {
	Key  func(parent any) K
	Data func(ctx context.Context, keys []K) (map[K]T, error)
}

func (b BatchFuncs[K, T]) GetKey(parent any) K { return b.Key(parent) }
func (b BatchFuncs[K, T]) GetData(ctx context.Context, keys []K) (map[K]T, error) {
	return b.Data(ctx, keys)
}

// BatchArgsFuncs adapts functions to BatchArgsResolver.
type BatchArgsFuncs[K comparable, T, A any] struct {
	Key  func(parent any) K
	Data func(ctx context.Context, keys []K, args A) (map[K]T, error)
}

func (b BatchArgsFuncs[K, T, A]) GetKey(parent any) K { return b.Key(parent) }
func (b BatchArgsFuncs[K, T, A]) GetData(ctx context.Context, keys []K, args A) (map[K]T, error) {
	return b.Data(ctx, keys, args)
}

// LookupFuncs adapts functions to LookupResolver.
type LookupFuncs[K comparable, T any] struct {
	Key  func(parent any) K
	Data func(ctx context.Context, keys []K) (map[K][]T, error)
}

func (b LookupFuncs[K, T]) GetKey(parent any) K { return b.Key(parent) }
func (b LookupFuncs[K, T]) GetData(ctx context.Context, keys []K) (map[K][]T, error) {
	return b.Data(ctx, keys)
}

// LookupArgsFuncs adapts functions to LookupArgsResolver.
type LookupArgsFuncs[K comparable, T, A any] struct {
	Key  func(parent any) K
	Data func(ctx context.Context, keys []K, args A) (map[K][]T, error)
}

func (b LookupArgsFuncs[K, T, A]) GetKey(parent any) K { return b.Key(parent) }
func (b LookupArgsFuncs[K, T, A]) GetData(ctx context.Context, keys []K, args A) (map[K][]T, error) {
	return b.Data(ctx, keys, args)
}

// ConnectionFunc adapts a function to ConnectionResolver.
type ConnectionFunc[T any] func(ctx context.Context, parent any, req PageRequest) (Page[T], error)

func (f ConnectionFunc[T]) Resolve(ctx context.Context, parent any, req PageRequest) (Page[T], error) {
	return f(ctx, parent, req)
}
