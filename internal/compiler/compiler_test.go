package compiler

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/guard"
	"github.com/hanpama/graphkit/internal/model"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/resolve"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

type author struct {
	name  string
	books []*book
}

type book struct {
	title  string
	author *author
}

type product struct {
	id    string
	name  string
	price int
}

func (*product) GraphTypeID() descriptor.TypeID { return "lib.Product" }

func text(v string) func(any) any { return func(any) any { return v } }

func preload(property string) func(model.TypeConfig) model.TypeConfig {
	return func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField(property, func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.Preloaded(f.Property.Type, nil))
		})
	}
}

func messages(t *testing.T, err error) []string {
	t.Helper()
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Messages()
}

func libraryConfig() model.SchemaConfig {
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
			{Name: "Author", Type: descriptor.Opt("lib.Author"), Get: func(any) any { return &author{name: "Ursula"} }},
		}},
		descriptor.Type{ID: "lib.Author", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*author).name }},
			{Name: "Books", Type: descriptor.ListOf("lib.Book"), Get: func(s any) any { return s.(*author).books }},
		}},
		descriptor.Type{ID: "lib.Book", Properties: []descriptor.Property{
			{Name: "Title", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*book).title }},
			{Name: "Author", Type: descriptor.Of("lib.Author"), Get: func(s any) any { return s.(*book).author }},
		}},
	)
	return model.NewSchema(table).
		WithQuery("lib.Query").
		Configure("lib.Query", preload("Author")).
		Configure("lib.Author", preload("Books")).
		Configure("lib.Book", preload("Author"))
}

const librarySDL = `type Author {
  name: String!
  books: [Book!]!
}

type Book {
  title: String!
  author: Author!
}

type Query {
  author: Author
}
`

func TestCompileRequiresQueryRoot(t *testing.T) {
	_, err := Compile(libraryConfig().WithQuery(""))
	require.ErrorIs(t, err, ErrNoQueryRoot)
}

func TestScalarOnlyTypeNeedsNoResolvers(t *testing.T) {
	table := descriptor.NewTable(descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
		{Name: "Version", Type: descriptor.Of(descriptor.String), Get: text("1.0")},
		{Name: "Books", Type: descriptor.Of(descriptor.Int), Get: func(any) any { return 3 }},
		{Name: "Rating", Type: descriptor.Opt(descriptor.Float64), Get: func(any) any { return 4.5 }},
	}})

	s, err := Compile(model.NewSchema(table).WithQuery("lib.Query"))
	require.NoError(t, err)

	want := "type Query {\n  version: String!\n  books: Int!\n  rating: Float\n}\n"
	if diff := cmp.Diff(want, schema.Render(s)); diff != "" {
		t.Fatalf("sdl mismatch (-want +got):\n%s", diff)
	}
	for _, f := range s.GetQueryType().Fields {
		require.False(t, f.Async, f.Name)
	}
	v, err := s.GetQueryType().Field("version").Resolve(context.Background(), struct{}{}, nil)
	require.NoError(t, err)
	require.Equal(t, "1.0", v)
}

func TestCompileIsIdempotent(t *testing.T) {
	cfg := libraryConfig()
	a, err := Compile(cfg)
	require.NoError(t, err)
	b, err := Compile(cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(librarySDL, schema.Render(a)); diff != "" {
		t.Fatalf("sdl mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(schema.Render(a), schema.Render(b)); diff != "" {
		t.Fatalf("recompiled sdl mismatch (-want +got):\n%s", diff)
	}
	require.NotSame(t, a.Types["Author"], b.Types["Author"])
}

func TestCyclesShareCanonicalNodes(t *testing.T) {
	s, err := Compile(libraryConfig())
	require.NoError(t, err)

	authorNode, bookNode := s.Types["Author"], s.Types["Book"]
	require.Same(t, bookNode, authorNode.Field("books").Type.NamedTarget())
	require.Same(t, authorNode, bookNode.Field("author").Type.NamedTarget())
	require.Same(t, authorNode, s.GetQueryType().Field("author").Type.NamedTarget())
	require.Equal(t, "[Book!]!", authorNode.Field("books").Type.String())
}

func TestExplicitResolverBeatsScalarMap(t *testing.T) {
	table := descriptor.NewTable(descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
		{Name: "Views", Type: descriptor.Opt(descriptor.Int64), Get: func(any) any { return int64(7) }},
		{Name: "Label", Type: descriptor.Opt(descriptor.Int64), Get: func(any) any { return "seven" }},
	}})
	asString := func(f model.FieldConfig) model.FieldConfig {
		return f.WithResolver(resolve.Preloaded(descriptor.Of(descriptor.String), nil))
	}

	cfg := model.NewSchema(table).
		WithQuery("lib.Query").
		Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
			return t.ConfigureField("Label", asString)
		})
	s, err := Compile(cfg)
	require.NoError(t, err)
	require.Equal(t, "Long", s.GetQueryType().Field("views").Type.String())
	require.Equal(t, "String!", s.GetQueryType().Field("label").Type.String())

	// the nullability override applies last, to the outer type only
	s, err = Compile(cfg.Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.NonNull("Views").Nullable("Label")
	}))
	require.NoError(t, err)
	require.Equal(t, "Long!", s.GetQueryType().Field("views").Type.String())
	require.Equal(t, "String", s.GetQueryType().Field("label").Type.String())
}

func TestGuardRequiresNullableField(t *testing.T) {
	viewer := services.NewKey[bool]("viewer")
	g := guard.For(viewer, func(_ context.Context, admin bool, _ any) (bool, error) { return admin, nil })
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
			{Name: "Customer", Type: descriptor.Opt("lib.Customer"), Get: text("")},
		}},
		descriptor.Type{ID: "lib.Customer", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: text("Ada")},
			{Name: "Email", Type: descriptor.Of(descriptor.String), Get: text("ada@example.com")},
		}},
	)
	guarded := model.NewSchema(table).
		WithQuery("lib.Query").
		Configure("lib.Query", preload("Customer")).
		Configure("lib.Customer", func(t model.TypeConfig) model.TypeConfig {
			return t.ConfigureField("Email", func(f model.FieldConfig) model.FieldConfig { return f.WithGuard(g) })
		})

	_, err := Compile(guarded)
	require.Equal(t, []string{`Guarded field "Email" of type lib.Customer must be nullable`}, messages(t, err))

	nullable := guarded.Configure("lib.Customer", func(t model.TypeConfig) model.TypeConfig { return t.Nullable("Email") })
	reg := services.NewRegistry()
	services.Provide(reg, viewer, services.Value(false))
	s, err := Compile(nullable, WithServices(reg))
	require.NoError(t, err)

	email := s.Types["Customer"].Field("email")
	require.Equal(t, "String", email.Type.String())
	ctx := services.WithScope(context.Background(), reg.NewScope())
	v, err := email.Resolve(ctx, struct{}{}, nil)
	require.ErrorIs(t, err, guard.ErrNotAuthorized)
	require.Nil(t, v)
}

func TestDuplicateNamesListSortedIdentities(t *testing.T) {
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
			{Name: "Second", Type: descriptor.Opt("b.Thing"), Get: text("")},
			{Name: "First", Type: descriptor.Opt("a.Thing"), Get: text("")},
		}},
		descriptor.Type{ID: "b.Thing", Properties: []descriptor.Property{
			{Name: "Label", Type: descriptor.Of(descriptor.String), Get: text("")},
		}},
		descriptor.Type{ID: "a.Thing", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: text("")},
		}},
	)
	cfg := model.NewSchema(table).
		WithQuery("lib.Query").
		Configure("lib.Query", preload("First")).
		Configure("lib.Query", preload("Second"))

	_, err := Compile(cfg)
	require.Equal(t, []string{`Duplicate type name "Thing" declared by a.Thing, b.Thing`}, messages(t, err))
}

func TestUnresolvedFieldsAndUnknownTypes(t *testing.T) {
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
			{Name: "Author", Type: descriptor.Opt("lib.Author"), Get: text("")},
			{Name: "Ghost", Type: descriptor.Opt("lib.Ghost"), Get: text("")},
		}},
		descriptor.Type{ID: "lib.Author", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: text("")},
		}},
	)
	cfg := model.NewSchema(table).WithQuery("lib.Query").Configure("lib.Query", preload("Ghost"))

	_, err := Compile(cfg)
	want := []string{
		"Unknown type lib.Ghost is referenced but neither configured nor described",
		`Unresolved field "Author" of type lib.Query: no resolver is configured and the property is not a readable scalar`,
		`Field "Ghost" of type lib.Query: unknown type lib.Ghost`,
	}
	if diff := cmp.Diff(want, messages(t, err)); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingServiceProvider(t *testing.T) {
	stock := services.NewKey[resolve.Resolver[int]]("stock")
	table := descriptor.NewTable(descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
		{Name: "Version", Type: descriptor.Of(descriptor.String), Get: text("1.0")},
	}})
	cfg := model.NewSchema(table).WithQuery("lib.Query").Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Stock", func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.Scalar(stock, descriptor.Of(descriptor.Int)))
		})
	})

	_, err := Compile(cfg, WithServices(services.NewRegistry()))
	require.Equal(t, []string{`No provider registered for service "stock" required by Query.stock`}, messages(t, err))

	reg := services.NewRegistry()
	services.Provide(reg, stock, services.Value[resolve.Resolver[int]](resolve.ResolverFunc[int](
		func(context.Context, any) (int, error) { return 7, nil },
	)))
	s, err := Compile(cfg, WithServices(reg))
	require.NoError(t, err)
	f := s.GetQueryType().Field("stock")
	require.True(t, f.Async)
	require.Equal(t, "Int!", f.Type.String())
}

func TestSharedRegistryChecksEachCompilationAlone(t *testing.T) {
	stock := services.NewKey[resolve.Resolver[int]]("stock")
	table := descriptor.NewTable(descriptor.Type{ID: "lib.Query"})
	cfg := model.NewSchema(table).WithQuery("lib.Query").Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Stock", func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.Scalar(stock, descriptor.Of(descriptor.Int)))
		})
	})

	reg := services.NewRegistry()
	_, err := Compile(cfg, WithServices(reg))
	require.Len(t, messages(t, err), 1)

	_, err = Compile(libraryConfig(), WithServices(reg))
	require.NoError(t, err)
}

func TestInterfacePossibleTypes(t *testing.T) {
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query", Properties: []descriptor.Property{
			{Name: "Node", Type: descriptor.Opt("lib.Node"), Get: text("")},
		}},
		descriptor.Type{ID: "lib.Node", Kind: descriptor.KindInterface, Properties: []descriptor.Property{
			{Name: "ID", Type: descriptor.Of(descriptor.ID), Get: func(s any) any { return s.(*product).id }},
		}},
		descriptor.Type{ID: "lib.Product", Properties: []descriptor.Property{
			{Name: "ID", Type: descriptor.Of(descriptor.ID), Get: func(s any) any { return s.(*product).id }},
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*product).name }},
		}},
	)
	cfg := model.NewSchema(table).
		WithQuery("lib.Query").
		Configure("lib.Query", preload("Node")).
		Configure("lib.Product", func(t model.TypeConfig) model.TypeConfig { return t.Interface("lib.Node") })

	s, err := Compile(cfg)
	require.NoError(t, err)

	node := s.Types["Node"]
	require.Equal(t, schema.TypeKindInterface, node.Kind)
	require.Equal(t, []string{"Product"}, node.PossibleTypes)
	require.Equal(t, []string{"Node"}, s.Types["Product"].Interfaces)

	name, err := node.ResolveType(&product{id: "p1"})
	require.NoError(t, err)
	require.Equal(t, "Product", name)
	_, err = node.ResolveType("p1")
	require.ErrorContains(t, err, "cannot determine the concrete type of string")
}

func TestConnectionWithOrdering(t *testing.T) {
	products := services.NewKey[resolve.ConnectionResolver[*product]]("products")
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query"},
		descriptor.Type{ID: "lib.Product", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*product).name }},
			{Name: "Price", Type: descriptor.Of(descriptor.Int), Get: func(s any) any { return s.(*product).price }},
		}},
	)
	desc, _ := table.Lookup("lib.Product")
	cfg := model.NewSchema(table).WithQuery("lib.Query").Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Products", func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.Connection(products, "lib.Product")).WithOrderBy(ordering.For(desc))
		})
	})

	s, err := Compile(cfg)
	require.NoError(t, err)
	sdl := schema.Render(s)
	require.Contains(t, sdl, "  products(offset: Int = 0, count: Int = 50, orderBy: ProductOrderBy, search: String): ProductConnection!\n")
	require.Contains(t, sdl, "enum ProductOrderBy {\n  name_ASC\n  name_DESC\n  price_ASC\n  price_DESC\n}\n")
	require.Contains(t, sdl, "type ProductConnection {\n  totalCount: Int!\n  records: [Product!]!\n}\n")
	require.Same(t, s.Types["Product"], s.Types["ProductConnection"].Field("records").Type.NamedTarget())

	preloaded := cfg.Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Products", func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.Preloaded(descriptor.ListOf("lib.Product"), nil))
		})
	})
	_, err = Compile(preloaded)
	require.Equal(t, []string{`Field "Products" of type lib.Query has an ordering but its resolver does not accept one`}, messages(t, err))

	keyless := cfg.Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Products", func(f model.FieldConfig) model.FieldConfig {
			return f.WithOrderBy(ordering.For(desc).Custom("score", nil, ordering.Both))
		})
	})
	_, err = Compile(keyless)
	require.Equal(t, []string{`Field "Products" of type lib.Query: ordering value "score" has no sort key`}, messages(t, err))
}

type bookFilter struct {
	Author *struct {
		Name string `json:"name"`
	} `json:"author"`
}

func TestAnalyzeSeparatesInputTypes(t *testing.T) {
	books := services.NewKey[resolve.ArgsResolver[[]*book, bookFilter]]("books")
	table := descriptor.NewTable(
		descriptor.Type{ID: "lib.Query"},
		descriptor.Type{ID: "lib.Book", Properties: []descriptor.Property{
			{Name: "Title", Type: descriptor.Of(descriptor.String), Get: func(s any) any { return s.(*book).title }},
		}},
		descriptor.Type{ID: "lib.BookFilter", Properties: []descriptor.Property{
			{Name: "Author", Type: descriptor.Opt("lib.AuthorRef")},
		}},
		descriptor.Type{ID: "lib.AuthorRef", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String)},
		}},
		descriptor.Type{ID: "lib.Unused", Properties: []descriptor.Property{
			{Name: "Name", Type: descriptor.Of(descriptor.String), Get: text("")},
		}},
	)
	cfg := model.NewSchema(table).WithQuery("lib.Query").Configure("lib.Query", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Books", func(f model.FieldConfig) model.FieldConfig {
			return f.WithResolver(resolve.ListWithArgs(books, "lib.Book", "lib.BookFilter"))
		})
	})

	r := Analyze(cfg)
	require.Equal(t, []descriptor.TypeID{"lib.Book", "lib.Query"}, slices.Sorted(maps.Keys(r.Output)))
	require.Equal(t, []descriptor.TypeID{"lib.AuthorRef", "lib.BookFilter"}, slices.Sorted(maps.Keys(r.Input)))
	require.Empty(t, r.Unknown)

	s, err := Compile(cfg)
	require.NoError(t, err)
	sdl := schema.Render(s)
	require.Contains(t, sdl, "  books(author: AuthorRefInput): [Book!]!\n")
	require.Contains(t, sdl, "input AuthorRefInput {\n  name: String!\n}\n")
	require.NotContains(t, sdl, "Unused")
}

func TestCompilePublishesEvents(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	var starts []events.CompileStart
	var finishes []events.CompileFinish
	eventbus.On(bus, func(_ context.Context, e events.CompileStart) { starts = append(starts, e) })
	eventbus.On(bus, func(_ context.Context, e events.CompileFinish) { finishes = append(finishes, e) })

	_, err := Compile(libraryConfig())
	require.NoError(t, err)
	_, err = Compile(libraryConfig().Configure("lib.Book", func(t model.TypeConfig) model.TypeConfig {
		return t.ConfigureField("Author", func(f model.FieldConfig) model.FieldConfig { return f.WithResolver(nil) })
	}))
	require.Error(t, err)

	require.Equal(t, []events.CompileStart{{Query: "lib.Query"}, {Query: "lib.Query"}}, starts)
	require.Len(t, finishes, 2)
	require.NoError(t, finishes[0].Err)
	require.Equal(t, 8, finishes[0].Types)
	require.Equal(t, 1, finishes[1].Violations)
}
