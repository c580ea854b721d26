package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/scalar"
)

func sampleSchema(query string) *Schema {
	s := NewSchema("").SetQueryType(query).AddBuiltins()

	product := NewType("Product", TypeKindObject, "A catalog entry.")
	node := NewType("Node", TypeKindInterface, "")
	node.AddField(&Field{Name: "id", Type: NonNullType(NamedType("ID"))})
	node.AddPossibleType("Product")

	product.AddInterface("Node").
		AddField(&Field{Name: "id", Type: NonNullType(NamedType("ID"))}).
		AddField(&Field{Name: "price", Type: NamedType("Long"), IsDeprecated: true, DeprecationReason: "use cost"})

	order := NewType("ProductOrderBy", TypeKindEnum, "")
	order.AddEnumValue(&EnumValue{Name: "price_ASC"}).AddEnumValue(&EnumValue{Name: "price_DESC"})

	root := NewType(query, TypeKindObject, "")
	root.AddField(&Field{
		Name: "products",
		Type: NonNullType(ListType(NonNullType(Ref(product)))),
		Arguments: []*InputValue{
			{Name: "count", Type: NamedType("Int"), DefaultValue: 50},
			{Name: "orderBy", Type: NamedType("ProductOrderBy")},
		},
	})

	return s.AddType(product).AddType(node).AddType(order).AddType(root).AddType(ScalarType(&scalar.Long))
}

func TestRenderIsSortedAndSkipsBuiltins(t *testing.T) {
	want := `"""
The ` + "`Long`" + ` scalar type represents 64-bit signed whole numeric values.
"""
scalar Long

interface Node {
  id: ID!
}

"""
A catalog entry.
"""
type Product implements Node {
  id: ID!
  price: Long @deprecated(reason: "use cost")
}

enum ProductOrderBy {
  price_ASC
  price_DESC
}

type Query {
  products(count: Int = 50, orderBy: ProductOrderBy): [Product!]!
}
`
	got := Render(sampleSchema("Query"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rendered SDL mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSchemaBlockForCustomRoot(t *testing.T) {
	got := Render(sampleSchema("Shop"))
	require.Contains(t, got, "schema {\n  query: Shop\n}\n")
	require.NotContains(t, Render(sampleSchema("Query")), "schema {")
}

func TestTypeRefHelpers(t *testing.T) {
	product := NewType("Product", TypeKindObject, "")
	ref := NonNullType(ListType(NonNullType(Ref(product))))

	require.True(t, ref.IsNonNull())
	require.True(t, ref.IsList())
	require.Equal(t, "Product", ref.GetNamedType())
	require.Same(t, product, ref.NamedTarget())
	require.Equal(t, "[Product!]!", ref.String())
	require.Equal(t, "[Product!]", ref.Nullable().String())
}

func TestEnumValueOf(t *testing.T) {
	enum := NewType("Status", TypeKindEnum, "")
	enum.AddEnumValue(&EnumValue{Name: "OPEN", Value: 1}).AddEnumValue(&EnumValue{Name: "CLOSED", Value: 2})

	v, ok := enum.EnumValueOf(2)
	require.True(t, ok)
	require.Equal(t, "CLOSED", v.Name)
	_, ok = enum.EnumValueOf(3)
	require.False(t, ok)
}
