package resolve

import (
	"context"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/services"
)

type single[T any] struct {
	base
	key services.Key[Resolver[T]]
}

// Scalar resolves the field with one call per parent.
func Scalar[T any](key services.Key[Resolver[T]], returns descriptor.TypeRef) Config {
	return single[T]{base: base{kind: KindScalar, service: key.Name(), returns: returns}, key: key}
}

// List resolves a non-null list of elem with one call per parent.
func List[T any](key services.Key[Resolver[[]T]], elem descriptor.TypeID) Config {
	return single[[]T]{base: base{kind: KindList, service: key.Name(), returns: descriptor.ListOf(elem)}, key: key}
}

func (c single[T]) Resolver(Field) Func {
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		v, err := r.Resolve(ctx, p.Source)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

type singleArgs[T, A any] struct {
	base
	key services.Key[ArgsResolver[T, A]]
}

// ScalarWithArgs resolves the field with one call per parent, passing the
// arguments decoded into A. The argument list is derived from args.
func ScalarWithArgs[T, A any](key services.Key[ArgsResolver[T, A]], returns descriptor.TypeRef, args descriptor.TypeID) Config {
	return singleArgs[T, A]{
		base: base{kind: KindScalarWithArgs, service: key.Name(), returns: returns, argsType: args},
		key:  key,
	}
}

// ListWithArgs is the list form of ScalarWithArgs.
func ListWithArgs[T, A any](key services.Key[ArgsResolver[[]T, A]], elem descriptor.TypeID, args descriptor.TypeID) Config {
	return singleArgs[[]T, A]{
		base: base{kind: KindListWithArgs, service: key.Name(), returns: descriptor.ListOf(elem), argsType: args},
		key:  key,
	}
}

func (c singleArgs[T, A]) Resolver(Field) Func {
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		args, err := decodeArgs[A](p.Args)
		if err != nil {
			return nil, err
		}
		v, err := r.Resolve(ctx, p.Source, args)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}
