package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

type preloaded struct {
	returns descriptor.TypeRef
	parent  func() any
}

// Preloaded reads the field's property off the parent value. On root types,
// where there is no parent, a placeholder built by newParent is read instead;
// it is created on first use and shared afterwards.
func Preloaded(returns descriptor.TypeRef, newParent func() any) Config {
	p := preloaded{returns: returns}
	if newParent != nil {
		p.parent = sync.OnceValue(newParent)
	}
	return p
}

func (preloaded) Kind() Kind                                      { return KindPreloaded }
func (preloaded) Register(*services.Requirements, string)         {}
func (preloaded) Async() bool                                     { return false }
func (c preloaded) Returns() descriptor.TypeRef                   { return c.returns }
func (preloaded) ArgumentsType() (descriptor.TypeID, bool)        { return "", false }
func (preloaded) Arguments(Builder) ([]*schema.InputValue, error) { return nil, nil }

func (c preloaded) GraphType(b Builder) (*schema.TypeRef, error) {
	return b.OutputType(c.returns)
}

func (c preloaded) Resolver(f Field) Func {
	get := f.Property.Get
	return func(_ context.Context, p Params) (any, error) {
		if get == nil {
			return nil, fmt.Errorf("%s: property %s is not readable", f.Path(), f.Property.Name)
		}
		source := p.Source
		if source == nil && c.parent != nil {
			source = c.parent()
		}
		if source == nil {
			return nil, nil
		}
		return get(source), nil
	}
}
