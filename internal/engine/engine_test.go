package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/compiler"
	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/executor"
	"github.com/hanpama/graphkit/internal/services"
	"github.com/hanpama/graphkit/internal/shop"
)

func newShop(t *testing.T, opts ...Option) (*Engine, *shop.Store) {
	t.Helper()
	store := shop.Demo()
	reg := services.NewRegistry()
	shop.Register(reg, store)
	s, err := compiler.Compile(shop.Schema(), compiler.WithServices(reg))
	require.NoError(t, err)
	e, err := New(s, reg, opts...)
	require.NoError(t, err)
	return e, store
}

func run(t *testing.T, ctx context.Context, e *Engine, query string) *executor.ExecutionResult {
	t.Helper()
	res := e.Execute(ctx, Request{Query: query})
	require.NotNil(t, res)
	return res
}

func TestExecuteCoalescesSiblingLoads(t *testing.T) {
	e, store := newShop(t)

	res := run(t, context.Background(), e, `{ orders { id product { name } } }`)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"orders": []any{
			map[string]any{"id": "o1", "product": map[string]any{"name": "Desk lamp"}},
			map[string]any{"id": "o2", "product": map[string]any{"name": "Notebook"}},
			map[string]any{"id": "o3", "product": map[string]any{"name": "Office chair"}},
			map[string]any{"id": "o4", "product": map[string]any{"name": "Notebook"}},
			map[string]any{"id": "o5", "product": map[string]any{"name": "Standing desk"}},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"p1", "p2", "p3", "p4"}}, store.ProductLoads()); diff != "" {
		t.Errorf("product loads mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteLoadsOncePerDepth(t *testing.T) {
	e, store := newShop(t)

	res := run(t, context.Background(), e, `{ customers { name orders { quantity product { name } } } }`)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"customers": []any{
			map[string]any{"name": "Ada", "orders": []any{
				map[string]any{"quantity": 1, "product": map[string]any{"name": "Desk lamp"}},
				map[string]any{"quantity": 5, "product": map[string]any{"name": "Notebook"}},
			}},
			map[string]any{"name": "Grace", "orders": []any{
				map[string]any{"quantity": 1, "product": map[string]any{"name": "Office chair"}},
				map[string]any{"quantity": 2, "product": map[string]any{"name": "Notebook"}},
			}},
			map[string]any{"name": "Linus", "orders": []any{
				map[string]any{"quantity": 1, "product": map[string]any{"name": "Standing desk"}},
			}},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, [][]string{{"c1", "c2", "c3"}}, store.OrderLoads())
	require.Equal(t, [][]string{{"p1", "p2", "p3", "p4"}}, store.ProductLoads())
}

func TestExecuteGuardDeniesPerParent(t *testing.T) {
	e, _ := newShop(t)
	ctx := shop.WithViewer(context.Background(), shop.Viewer{CustomerID: "c2"})

	res := run(t, ctx, e, `{ customers { name email } }`)

	want := map[string]any{
		"customers": []any{
			map[string]any{"name": "Ada", "email": nil},
			map[string]any{"name": "Grace", "email": "grace@example.com"},
			map[string]any{"name": "Linus", "email": nil},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	wantErrs := []executor.GraphQLError{
		{Message: "Not authorized", Path: executor.Path{"customers", 0, "email"}},
		{Message: "Not authorized", Path: executor.Path{"customers", 2, "email"}},
	}
	if diff := cmp.Diff(wantErrs, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteAdminReadsEveryEmail(t *testing.T) {
	e, _ := newShop(t)
	ctx := shop.WithViewer(context.Background(), shop.Viewer{Admin: true})

	res := run(t, ctx, e, `{ customer(id: "c3") { email } }`)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"customer": map[string]any{"email": "linus@example.com"}}, res.Data)
}

func TestExecuteMutation(t *testing.T) {
	e, store := newShop(t)

	res := run(t, context.Background(), e, `mutation {
		placeOrder(customerId: "c1", productId: "p4", quantity: 1) { id status product { stock } }
	}`)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"placeOrder": map[string]any{
			"id":      "o6",
			"status":  "PENDING",
			"product": map[string]any{"stock": 0},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, store.Orders(), 6)

	res = run(t, context.Background(), e, `mutation {
		placeOrder(customerId: "c2", productId: "p4", quantity: 1) { id }
	}`)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "not enough stock")
	require.Len(t, store.Orders(), 6)
}

func TestExecuteNodeInterface(t *testing.T) {
	e, _ := newShop(t)

	res := run(t, context.Background(), e, `{
		chair: node(id: "p3") { __typename id ... on Product { name price } }
		ada: node(id: "c1") { __typename ... on Customer { name } }
		none: node(id: "x") { id }
	}`)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"chair": map[string]any{"__typename": "Product", "id": "p3", "name": "Office chair", "price": 189.0},
		"ada":   map[string]any{"__typename": "Customer", "name": "Ada"},
		"none":  nil,
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteConnection(t *testing.T) {
	e, _ := newShop(t)

	res := run(t, context.Background(), e, `{
		top: products(orderBy: price_DESC, count: 2) { totalCount records { name } }
		cheap: products(orderBy: price_ASC, offset: 1, count: 1) { records { name } }
		desks: products(search: "desk") { totalCount }
	}`)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"top": map[string]any{
			"totalCount": 4,
			"records":    []any{map[string]any{"name": "Standing desk"}, map[string]any{"name": "Office chair"}},
		},
		"cheap": map[string]any{"records": []any{map[string]any{"name": "Desk lamp"}}},
		"desks": map[string]any{"totalCount": 2},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteVariables(t *testing.T) {
	e, _ := newShop(t)

	res := e.Execute(context.Background(), Request{
		Query:     `query Lookup($id: ID!) { customer(id: $id) { name } }`,
		Variables: map[string]any{"id": "c2"},
	})
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"customer": map[string]any{"name": "Grace"}}, res.Data)
}

func TestExecuteRejectsInvalidQuery(t *testing.T) {
	e, _ := newShop(t)

	res := run(t, context.Background(), e, `{ customers { shoeSize } }`)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "shoeSize")
}

func TestExecutePublishesOperationEvents(t *testing.T) {
	prev := eventbus.Current()
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(prev) })

	var starts []events.OperationStart
	var finishes []events.OperationFinish
	eventbus.On(bus, func(_ context.Context, e events.OperationStart) { starts = append(starts, e) })
	eventbus.On(bus, func(_ context.Context, e events.OperationFinish) { finishes = append(finishes, e) })

	e, _ := newShop(t)
	res := e.Execute(context.Background(), Request{Query: `query Names { customers { name email } }`, OperationName: "Names"})
	require.Len(t, res.Errors, 3)

	require.Len(t, starts, 1)
	require.Len(t, finishes, 1)
	require.Equal(t, starts[0].RequestID, finishes[0].RequestID)
	require.NotEmpty(t, finishes[0].RequestID)
	require.Equal(t, "Names", finishes[0].OperationName)
	require.Equal(t, "query", finishes[0].OperationType)
	require.Len(t, finishes[0].Errors, 3)
}

func TestExecuteIntrospection(t *testing.T) {
	e, _ := newShop(t)

	res := run(t, context.Background(), e, `{
		__schema { queryType { name } mutationType { name } }
		status: __type(name: "OrderStatus") { kind enumValues { name } }
		node: __type(name: "Node") { kind possibleTypes { name } }
	}`)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"__schema": map[string]any{
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": map[string]any{"name": "Mutation"},
		},
		"status": map[string]any{
			"kind": "ENUM",
			"enumValues": []any{
				map[string]any{"name": "PENDING"},
				map[string]any{"name": "SHIPPED"},
				map[string]any{"name": "CANCELLED"},
			},
		},
		"node": map[string]any{
			"kind":          "INTERFACE",
			"possibleTypes": []any{map[string]any{"name": "Customer"}, map[string]any{"name": "Product"}},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteWithoutIntrospection(t *testing.T) {
	e, _ := newShop(t, WithIntrospection(false))

	res := run(t, context.Background(), e, `{ __schema { queryType { name } } }`)
	require.Len(t, res.Errors, 1)
}
