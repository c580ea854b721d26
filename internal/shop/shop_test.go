package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/compiler"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

func TestSchemaCompiles(t *testing.T) {
	reg := services.NewRegistry()
	Register(reg, Demo())

	s, err := compiler.Compile(Schema(), compiler.WithServices(reg))
	require.NoError(t, err)

	sdl := schema.Render(s)
	for _, want := range []string{
		"type Customer implements Node",
		"type ProductConnection",
		"enum ProductOrderBy",
		"placeOrder(",
	} {
		require.Contains(t, sdl, want)
	}
	require.True(t, s.Types["Order"].Field("product").Async)
	require.False(t, s.Types["Order"].Field("quantity").Async)
}

func TestSchemaNeedsEveryService(t *testing.T) {
	_, err := compiler.Compile(Schema(), compiler.WithServices(services.NewRegistry()))
	require.Error(t, err)
	var verr compiler.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Messages(), `No provider registered for service "shop.Products" required by Query.products`)
}

func TestPlaceOrder(t *testing.T) {
	s := Demo()

	o, err := s.PlaceOrder("c3", "p3", 2)
	require.NoError(t, err)
	require.Equal(t, "o6", o.ID)
	require.Equal(t, StatusPending, o.Status)

	products, err := s.ProductsByID(context.Background(), []string{"p3"})
	require.NoError(t, err)
	require.Equal(t, 1, products["p3"].Stock)

	_, err = s.PlaceOrder("c3", "p3", 2)
	require.ErrorIs(t, err, ErrOutOfStock)
	_, err = s.PlaceOrder("c9", "p3", 1)
	require.ErrorIs(t, err, ErrUnknownCustomer)
	_, err = s.PlaceOrder("c1", "p9", 1)
	require.ErrorIs(t, err, ErrUnknownProduct)
	_, err = s.PlaceOrder("c1", "p1", 0)
	require.Error(t, err)
	require.Len(t, s.Orders(), 6)
}

func TestBatchLoadsSkipUnknownKeys(t *testing.T) {
	s := Demo()

	products, err := s.ProductsByID(context.Background(), []string{"p1", "nope"})
	require.NoError(t, err)
	require.Len(t, products, 1)

	orders, err := s.OrdersByCustomer(context.Background(), []string{"c2", "c9"})
	require.NoError(t, err)
	require.Len(t, orders["c2"], 2)
	require.NotContains(t, orders, "c9")

	require.Equal(t, [][]string{{"p1", "nope"}}, s.ProductLoads())
	require.Equal(t, [][]string{{"c2", "c9"}}, s.OrderLoads())
}

func TestOwnEmailGuard(t *testing.T) {
	reg := services.NewRegistry()
	Register(reg, Demo())
	ada := &Customer{ID: "c1"}

	allowed := func(v Viewer) bool {
		ctx := services.WithScope(WithViewer(context.Background(), v), reg.NewScope())
		ok, err := ownEmail.Allow(ctx, ada)
		require.NoError(t, err)
		return ok
	}
	require.True(t, allowed(Viewer{CustomerID: "c1"}))
	require.True(t, allowed(Viewer{Admin: true}))
	require.False(t, allowed(Viewer{CustomerID: "c2"}))
	require.False(t, allowed(Viewer{}))
}
