// Package resolve implements the closed set of field resolution strategies.
//
// A strategy (Config) is attached to a field while the model is configured.
// At compile time it contributes the field's schema type and arguments and
// declares the services it needs; it then produces the Func the engine calls
// for every parent value. Strategies hold no per-request state: fetch
// interfaces are resolved from the request scope on every call, and batched
// strategies queue their keys on the request's loader dispatcher.
package resolve

import (
	"context"
	"fmt"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

// Kind tags a strategy variant.
type Kind int

const (
	KindScalar Kind = iota
	KindScalarWithArgs
	KindList
	KindListWithArgs
	KindBatched
	KindBatchedWithArgs
	KindListBatched
	KindListBatchedWithArgs
	KindConnection
	KindPreloaded
)

var kindNames = [...]string{
	KindScalar:              "Scalar",
	KindScalarWithArgs:      "ScalarWithArgs",
	KindList:                "List",
	KindListWithArgs:        "ListWithArgs",
	KindBatched:             "Batched",
	KindBatchedWithArgs:     "BatchedWithArgs",
	KindListBatched:         "ListBatched",
	KindListBatchedWithArgs: "ListBatchedWithArgs",
	KindConnection:          "Connection",
	KindPreloaded:           "Preloaded",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Params carries the inputs of one field resolution.
type Params struct {
	Source any
	Args   map[string]any
}

// Func resolves a field for one parent. Batched strategies return a
// loader.Deferred that settles on the next flush of the request dispatcher.
type Func func(ctx context.Context, p Params) (any, error)

// Field identifies the field a resolver is created for.
type Field struct {
	Type     descriptor.TypeID
	TypeName string
	Name     string
	Property descriptor.Property
}

// Path returns "Type.field".
func (f Field) Path() string { return f.TypeName + "." + f.Name }

// Builder is the compilation cache as seen by strategies. Every type
// reference goes through it so that recursive graphs resolve to canonical
// nodes.
type Builder interface {
	// OutputType returns the schema reference for a declared value type.
	OutputType(ref descriptor.TypeRef) (*schema.TypeRef, error)
	// InputFields returns the argument list derived from an input type.
	InputFields(id descriptor.TypeID) ([]*schema.InputValue, error)
	// Synthesize returns the node named name, building it on first use.
	Synthesize(name string, kind schema.TypeKind, build func(t *schema.Type) error) (*schema.Type, error)
	// OrderingEnum returns the enum node of an ordering builder.
	OrderingEnum(o *ordering.Builder) (*schema.Type, error)
}

// Config is a resolution strategy.
type Config interface {
	Kind() Kind
	// Register declares the services the strategy resolves per request.
	Register(req *services.Requirements, by string)
	// Resolver creates the callable attached to the compiled field.
	Resolver(f Field) Func
	// GraphType returns the default schema type of the field.
	GraphType(b Builder) (*schema.TypeRef, error)
	// Arguments returns the field arguments.
	Arguments(b Builder) ([]*schema.InputValue, error)
	// Returns is the declared value type, used for reachability.
	Returns() descriptor.TypeRef
	// ArgumentsType is the input type the arguments are derived from.
	ArgumentsType() (descriptor.TypeID, bool)
	// Async reports whether the executor must batch the field.
	Async() bool
}

// Orderable is implemented by strategies accepting an ordering builder.
type Orderable interface {
	Config
	WithOrdering(o *ordering.Builder) Config
}

// base carries what every service-backed strategy shares.
type base struct {
	kind     Kind
	service  string
	returns  descriptor.TypeRef
	argsType descriptor.TypeID
}

func (c base) Kind() Kind                  { return c.kind }
func (c base) Returns() descriptor.TypeRef { return c.returns }
func (c base) Async() bool                 { return true }

func (c base) Register(req *services.Requirements, by string) {
	if c.service != "" {
		req.Require(c.service, by)
	}
}

func (c base) ArgumentsType() (descriptor.TypeID, bool) {
	return c.argsType, c.argsType != ""
}

func (c base) GraphType(b Builder) (*schema.TypeRef, error) {
	return b.OutputType(c.returns)
}

func (c base) Arguments(b Builder) ([]*schema.InputValue, error) {
	if c.argsType == "" {
		return nil, nil
	}
	return b.InputFields(c.argsType)
}
