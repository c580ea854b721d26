package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/guard"
	"github.com/hanpama/graphkit/internal/model"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/resolve"
	"github.com/hanpama/graphkit/internal/services"
)

const (
	QueryID       descriptor.TypeID = "shop.Query"
	MutationID    descriptor.TypeID = "shop.Mutation"
	NodeID        descriptor.TypeID = "shop.Node"
	CustomerID    descriptor.TypeID = "shop.Customer"
	ProductID     descriptor.TypeID = "shop.Product"
	OrderID       descriptor.TypeID = "shop.Order"
	StatusID      descriptor.TypeID = "shop.OrderStatus"
	CustomerArgID descriptor.TypeID = "shop.CustomerArgs"
	PlaceOrderID  descriptor.TypeID = "shop.PlaceOrderArgs"
)

// CustomerArgs are the arguments of Query.customer and Query.node.
type CustomerArgs struct {
	ID string `json:"id"`
}

// PlaceOrderArgs are the arguments of Mutation.placeOrder.
type PlaceOrderArgs struct {
	CustomerID string `json:"customerId"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
}

// Viewer is the caller of a request.
type Viewer struct {
	CustomerID string
	Admin      bool
}

type viewerKey struct{}

// WithViewer attaches v to ctx.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the viewer of ctx; anonymous callers get the zero Viewer.
func ViewerFrom(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerKey{}).(Viewer)
	return v
}

var (
	ViewerKey         = services.NewKey[Viewer]("shop.Viewer")
	CustomersKey      = services.NewKey[resolve.Resolver[[]*Customer]]("shop.Customers")
	CustomerKey       = services.NewKey[resolve.ArgsResolver[*Customer, CustomerArgs]]("shop.CustomerByID")
	NodeKey           = services.NewKey[resolve.ArgsResolver[any, CustomerArgs]]("shop.NodeByID")
	ProductsKey       = services.NewKey[resolve.ConnectionResolver[*Product]]("shop.Products")
	OrdersKey         = services.NewKey[resolve.Resolver[[]*Order]]("shop.Orders")
	ProductKey        = services.NewKey[resolve.BatchResolver[string, *Product]]("shop.ProductLoader")
	CustomerOrdersKey = services.NewKey[resolve.LookupResolver[string, *Order]]("shop.OrdersByCustomer")
	PlaceOrderKey     = services.NewKey[resolve.ArgsResolver[*Order, PlaceOrderArgs]]("shop.PlaceOrder")
)

// Descriptors describes the shop types.
func Descriptors() *descriptor.Table {
	id := descriptor.Of(descriptor.ID)
	return descriptor.NewTable(
		descriptor.Type{ID: QueryID, Name: "Query", Properties: []descriptor.Property{
			{Name: "Customers", Type: descriptor.ListOf(CustomerID)},
			{Name: "Customer", Type: descriptor.Opt(CustomerID)},
			{Name: "Node", Type: descriptor.Opt(NodeID), Description: "Looks up a customer or a product by id."},
			{Name: "Products", Type: descriptor.Of(ProductID)},
			{Name: "Orders", Type: descriptor.ListOf(OrderID)},
		}},
		descriptor.Type{ID: MutationID, Name: "Mutation", Properties: []descriptor.Property{
			{Name: "PlaceOrder", Type: descriptor.Of(OrderID)},
		}},
		descriptor.Type{ID: NodeID, Kind: descriptor.KindInterface, Properties: []descriptor.Property{
			{Name: "ID", Type: id, Get: nodeID},
		}, Tag: tag},
		descriptor.Type{ID: CustomerID, Properties: []descriptor.Property{
			{Name: "ID", Type: id, Get: func(s any) any { return s.(*Customer).ID }},
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*Customer).Name }},
			{Name: "Email", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*Customer).Email }},
			{Name: "Orders", Type: descriptor.ListOf(OrderID)},
		}},
		descriptor.Type{ID: ProductID, Properties: []descriptor.Property{
			{Name: "ID", Type: id, Get: func(s any) any { return s.(*Product).ID }},
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*Product).Name }},
			{Name: "Price", Type: descriptor.Of(descriptor.Float64), Get: func(s any) any { return s.(*Product).Price }},
			{Name: "Stock", Type: descriptor.Of(descriptor.Int), Get: func(s any) any { return s.(*Product).Stock }},
		}},
		descriptor.Type{ID: OrderID, Properties: []descriptor.Property{
			{Name: "ID", Type: id, Get: func(s any) any { return s.(*Order).ID }},
			{Name: "Quantity", Type: descriptor.Of(descriptor.Int), Get: func(s any) any { return s.(*Order).Quantity }},
			{Name: "Status", Type: descriptor.Of(StatusID), Get: func(s any) any { return s.(*Order).Status }},
			{Name: "PlacedAt", Type: descriptor.Of(descriptor.Time), Get: func(s any) any { return s.(*Order).PlacedAt }},
			{Name: "Product", Type: descriptor.Opt(ProductID)},
		}},
		descriptor.Type{ID: StatusID, Kind: descriptor.KindEnum, EnumValues: []descriptor.EnumValue{
			{Name: "PENDING", Value: StatusPending},
			{Name: "SHIPPED", Value: StatusShipped},
			{Name: "CANCELLED", Value: StatusCancelled, Description: "The order was withdrawn before shipping."},
		}},
		descriptor.Type{ID: CustomerArgID, Properties: []descriptor.Property{
			{Name: "ID", Type: id},
		}},
		descriptor.Type{ID: PlaceOrderID, Properties: []descriptor.Property{
			{Name: "CustomerID", Type: id},
			{Name: "ProductID", Type: id},
			{Name: "Quantity", Type: descriptor.Of(descriptor.Int)},
		}},
	)
}

func nodeID(s any) any {
	switch v := s.(type) {
	case *Customer:
		return v.ID
	case *Product:
		return v.ID
	}
	return nil
}

func tag(value any) descriptor.TypeID {
	switch value.(type) {
	case *Customer:
		return CustomerID
	case *Product:
		return ProductID
	}
	return ""
}

// ownEmail lets admins and the customer themselves read an email address.
var ownEmail = guard.For(ViewerKey, func(_ context.Context, v Viewer, parent any) (bool, error) {
	c, ok := parent.(*Customer)
	if !ok {
		return false, fmt.Errorf("shop: email guard got %T", parent)
	}
	return v.Admin || (v.CustomerID != "" && v.CustomerID == c.ID), nil
})

// Schema returns the configuration of the shop schema.
func Schema() model.SchemaConfig {
	table := Descriptors()
	product, _ := table.Lookup(ProductID)
	byPrice := ordering.For(product).Ignore("ID").Ignore("Stock")

	return model.NewSchema(table).
		WithQuery(QueryID).
		WithMutation(MutationID).
		Configure(QueryID, func(t model.TypeConfig) model.TypeConfig {
			return t.
				ConfigureField("Customers", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.List(CustomersKey, CustomerID))
				}).
				ConfigureField("Customer", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.ScalarWithArgs(CustomerKey, descriptor.Opt(CustomerID), CustomerArgID))
				}).
				ConfigureField("Node", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.ScalarWithArgs(NodeKey, descriptor.Opt(NodeID), CustomerArgID))
				}).
				ConfigureField("Products", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.Connection(ProductsKey, ProductID).WithPageSize(20)).WithOrderBy(byPrice)
				}).
				ConfigureField("Orders", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.List(OrdersKey, OrderID))
				})
		}).
		Configure(MutationID, func(t model.TypeConfig) model.TypeConfig {
			return t.ConfigureField("PlaceOrder", func(f model.FieldConfig) model.FieldConfig {
				return f.WithResolver(resolve.ScalarWithArgs(PlaceOrderKey, descriptor.Of(OrderID), PlaceOrderID))
			})
		}).
		Configure(CustomerID, func(t model.TypeConfig) model.TypeConfig {
			return t.
				Interface(NodeID).
				Nullable("Email").
				ConfigureField("Email", func(f model.FieldConfig) model.FieldConfig { return f.WithGuard(ownEmail) }).
				ConfigureField("Orders", func(f model.FieldConfig) model.FieldConfig {
					return f.WithResolver(resolve.ListBatched(CustomerOrdersKey, OrderID))
				})
		}).
		Configure(ProductID, func(t model.TypeConfig) model.TypeConfig {
			return t.Interface(NodeID).Describe("Something the shop sells.")
		}).
		Configure(OrderID, func(t model.TypeConfig) model.TypeConfig {
			return t.ConfigureField("Product", func(f model.FieldConfig) model.FieldConfig {
				return f.WithResolver(resolve.Batched(ProductKey, ProductID))
			})
		})
}

// Register provides every service the shop schema needs, backed by store.
// The viewer is read from the request context.
func Register(reg *services.Registry, store *Store) {
	services.Provide(reg, ViewerKey, func(ctx context.Context, _ *services.Scope) (Viewer, error) {
		return ViewerFrom(ctx), nil
	})

	var customers resolve.Resolver[[]*Customer] = resolve.ResolverFunc[[]*Customer](func(context.Context, any) ([]*Customer, error) {
		return store.Customers(), nil
	})
	var customer resolve.ArgsResolver[*Customer, CustomerArgs] = resolve.ArgsResolverFunc[*Customer, CustomerArgs](func(_ context.Context, _ any, args CustomerArgs) (*Customer, error) {
		c, _ := store.Customer(args.ID)
		return c, nil
	})
	var node resolve.ArgsResolver[any, CustomerArgs] = resolve.ArgsResolverFunc[any, CustomerArgs](func(_ context.Context, _ any, args CustomerArgs) (any, error) {
		if c, ok := store.Customer(args.ID); ok {
			return c, nil
		}
		for _, p := range store.Products() {
			if p.ID == args.ID {
				return p, nil
			}
		}
		return nil, nil
	})
	var products resolve.ConnectionResolver[*Product] = resolve.ConnectionFunc[*Product](func(_ context.Context, _ any, req resolve.PageRequest) (resolve.Page[*Product], error) {
		all := store.Products()
		if req.Search != "" {
			matched := all[:0]
			for _, p := range all {
				if strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
					matched = append(matched, p)
				}
			}
			all = matched
		}
		return resolve.Paginate(all, req), nil
	})
	var orders resolve.Resolver[[]*Order] = resolve.ResolverFunc[[]*Order](func(context.Context, any) ([]*Order, error) {
		return store.Orders(), nil
	})
	var productLoader resolve.BatchResolver[string, *Product] = resolve.BatchFuncs[string, *Product]{
		Key:  func(parent any) string { return parent.(*Order).ProductID },
		Data: store.ProductsByID,
	}
	var orderLoader resolve.LookupResolver[string, *Order] = resolve.LookupFuncs[string, *Order]{
		Key:  func(parent any) string { return parent.(*Customer).ID },
		Data: store.OrdersByCustomer,
	}
	var placeOrder resolve.ArgsResolver[*Order, PlaceOrderArgs] = resolve.ArgsResolverFunc[*Order, PlaceOrderArgs](func(_ context.Context, _ any, args PlaceOrderArgs) (*Order, error) {
		return store.PlaceOrder(args.CustomerID, args.ProductID, args.Quantity)
	})

	provide(reg, CustomersKey, customers)
	provide(reg, CustomerKey, customer)
	provide(reg, NodeKey, node)
	provide(reg, ProductsKey, products)
	provide(reg, OrdersKey, orders)
	provide(reg, ProductKey, productLoader)
	provide(reg, CustomerOrdersKey, orderLoader)
	provide(reg, PlaceOrderKey, placeOrder)
}

func provide[T any](reg *services.Registry, k services.Key[T], v T) {
	services.Provide(reg, k, services.Value(v))
}
