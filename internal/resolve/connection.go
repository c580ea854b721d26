package resolve

import (
	"context"
	"fmt"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

// Paging limits applied to connection arguments.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageRequest is the decoded paging input of a connection field.
type PageRequest struct {
	Offset  int
	Count   int
	OrderBy *ordering.Value
	Search  string
}

// Page is one page of records together with the size of the full result.
type Page[T any] struct {
	TotalCount int
	Records    []T
}

func (p Page[T]) total() int { return p.TotalCount }

func (p Page[T]) records() any {
	if p.Records == nil {
		return []T{}
	}
	return p.Records
}

type paged interface {
	total() int
	records() any
}

// ConnectionConfig is the Connection strategy.
type ConnectionConfig[T any] struct {
	base
	key      services.Key[ConnectionResolver[T]]
	order    *ordering.Builder
	pageSize int
}

// Connection serves a paginated list of elem through a synthesized
// <Elem>Connection type carrying totalCount and records.
func Connection[T any](key services.Key[ConnectionResolver[T]], elem descriptor.TypeID) ConnectionConfig[T] {
	return ConnectionConfig[T]{
		base:     base{kind: KindConnection, service: key.Name(), returns: descriptor.Of(elem)},
		key:      key,
		pageSize: DefaultPageSize,
	}
}

// WithOrdering adds an orderBy argument enumerating o's values.
func (c ConnectionConfig[T]) WithOrdering(o *ordering.Builder) Config {
	c.order = o
	return c
}

// WithPageSize changes the default count. Values outside 1..MaxPageSize are
// ignored.
func (c ConnectionConfig[T]) WithPageSize(n int) ConnectionConfig[T] {
	if n > 0 && n <= MaxPageSize {
		c.pageSize = n
	}
	return c
}

func (c ConnectionConfig[T]) GraphType(b Builder) (*schema.TypeRef, error) {
	elem, err := b.OutputType(descriptor.Of(c.returns.ID))
	if err != nil {
		return nil, err
	}
	name := elem.GetNamedType() + "Connection"
	node, err := b.Synthesize(name, schema.TypeKindObject, func(t *schema.Type) error {
		t.AddField(&schema.Field{
			Name: "totalCount",
			Type: schema.NonNullType(schema.NamedType("Int")),
			Resolve: func(_ context.Context, source any, _ map[string]any) (any, error) {
				return source.(paged).total(), nil
			},
		})
		t.AddField(&schema.Field{
			Name: "records",
			Type: schema.NonNullType(schema.ListType(elem)),
			Resolve: func(_ context.Context, source any, _ map[string]any) (any, error) {
				return source.(paged).records(), nil
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema.NonNullType(schema.Ref(node)), nil
}

func (c ConnectionConfig[T]) Arguments(b Builder) ([]*schema.InputValue, error) {
	args := []*schema.InputValue{
		{Name: "offset", Type: schema.NamedType("Int"), DefaultValue: 0},
		{Name: "count", Type: schema.NamedType("Int"), DefaultValue: c.pageSize},
	}
	if c.order != nil {
		enum, err := b.OrderingEnum(c.order)
		if err != nil {
			return nil, err
		}
		args = append(args, &schema.InputValue{Name: "orderBy", Type: schema.Ref(enum)})
	}
	args = append(args, &schema.InputValue{Name: "search", Type: schema.NamedType("String")})
	return args, nil
}

func (c ConnectionConfig[T]) Resolver(Field) Func {
	return func(ctx context.Context, p Params) (any, error) {
		r, err := services.From(ctx, c.key)
		if err != nil {
			return nil, err
		}
		req, err := c.pageRequest(p.Args)
		if err != nil {
			return nil, err
		}
		page, err := r.Resolve(ctx, p.Source, req)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}

func (c ConnectionConfig[T]) pageRequest(args map[string]any) (PageRequest, error) {
	req := PageRequest{Count: c.pageSize}
	if v, ok := args["offset"].(int); ok && v > 0 {
		req.Offset = v
	}
	if v, ok := args["count"].(int); ok {
		req.Count = min(max(v, 0), MaxPageSize)
	}
	if v, ok := args["search"].(string); ok {
		req.Search = v
	}
	if name, ok := args["orderBy"].(string); ok && c.order != nil {
		v, found := c.order.Lookup(name)
		if !found {
			return req, fmt.Errorf("unknown ordering %q", name)
		}
		req.OrderBy = &v
	}
	return req, nil
}

// Paginate serves req from an in-memory slice: items are sorted by
// req.OrderBy, then sliced by offset and count.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	sorted := items
	if req.OrderBy != nil {
		sorted = append([]T(nil), items...)
		ordering.Sort(sorted, *req.OrderBy)
	}
	start := min(req.Offset, len(sorted))
	end := min(start+req.Count, len(sorted))
	return Page[T]{TotalCount: len(items), Records: sorted[start:end]}
}
