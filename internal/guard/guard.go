// Package guard wraps field resolvers with an authorization predicate.
package guard

import (
	"context"
	"errors"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

// ErrNotAuthorized is the field error reported for a denied field.
var ErrNotAuthorized = errors.New("Not authorized")

// Guard decides whether a field may be resolved for a parent value.
type Guard interface {
	// Register declares the services the guard resolves per request.
	Register(req *services.Requirements, by string)
	// Allow evaluates the predicate for parent.
	Allow(ctx context.Context, parent any) (bool, error)
	// Active reports whether the guard checks anything at all.
	Active() bool
}

// Null allows everything.
var Null Guard = null{}

type null struct{}

func (null) Register(*services.Requirements, string)  {}
func (null) Allow(context.Context, any) (bool, error) { return true, nil }
func (null) Active() bool                             { return false }

// Predicate checks parent against an authorizer resolved for the request.
type Predicate[A any] func(ctx context.Context, authorizer A, parent any) (bool, error)

type keyed[A any] struct {
	key  services.Key[A]
	pred Predicate[A]
}

// For returns a guard consulting the authorizer registered under key.
func For[A any](key services.Key[A], pred Predicate[A]) Guard {
	return keyed[A]{key: key, pred: pred}
}

func (g keyed[A]) Register(req *services.Requirements, by string) {
	req.Require(g.key.Name(), by)
}

func (g keyed[A]) Allow(ctx context.Context, parent any) (bool, error) {
	a, err := services.From(ctx, g.key)
	if err != nil {
		return false, err
	}
	return g.pred(ctx, a, parent)
}

func (g keyed[A]) Active() bool { return true }

// Wrap returns next guarded by g. A denied field resolves to nil together
// with ErrNotAuthorized, and next is not called.
func Wrap(g Guard, typeName, fieldName string, next schema.Resolver) schema.Resolver {
	if g == nil || !g.Active() {
		return next
	}
	return func(ctx context.Context, parent any, args map[string]any) (any, error) {
		ok, err := g.Allow(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !ok {
			eventbus.Publish(ctx, events.AuthorizationDenied{Type: typeName, Field: fieldName})
			return nil, ErrNotAuthorized
		}
		return next(ctx, parent, args)
	}
}
