// Package services is the request-scoped instance provider consulted by
// resolver strategies and authorization guards.
//
// A Registry maps typed keys to factories and is populated while the model
// is configured. Each request opens a Scope which constructs instances lazily,
// at most once per key, and keeps them for the lifetime of the request.
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key identifies a service of type T.
type Key[T any] struct {
	name string
}

// NewKey returns a key named name.
func NewKey[T any](name string) Key[T] { return Key[T]{name: name} }

// Name returns the key's name.
func (k Key[T]) Name() string { return k.name }

// Factory constructs an instance for one request.
type Factory func(ctx context.Context, s *Scope) (any, error)

// Requirement records that a key is needed by a schema member.
type Requirement struct {
	Name string
	By   string
}

// Registry holds the factories of one model.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Provide registers the factory of k, replacing any earlier one.
func Provide[T any](r *Registry, k Key[T], f func(ctx context.Context, s *Scope) (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[k.name] = func(ctx context.Context, s *Scope) (any, error) {
		return f(ctx, s)
	}
}

// Value returns a factory handing out v to every request.
func Value[T any](v T) func(context.Context, *Scope) (T, error) {
	return func(context.Context, *Scope) (T, error) { return v, nil }
}

// Requirements collects the services one compilation needs. The zero value
// is ready to use.
type Requirements struct {
	mu   sync.Mutex
	list []Requirement
}

// Require records that by needs the service named name.
func (q *Requirements) Require(name, by string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list = append(q.list, Requirement{Name: name, By: by})
}

// Missing returns the requirements without a factory in r, sorted by
// requirer.
func (q *Requirements) Missing(r *Registry) []Requirement {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Requirement
	for _, req := range q.list {
		if _, ok := r.factory(req.Name); !ok {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].By != out[j].By {
			return out[i].By < out[j].By
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// NewScope opens a request scope.
func (r *Registry) NewScope() *Scope {
	return &Scope{reg: r, instances: make(map[string]any)}
}

// Scope holds the instances constructed for one request.
type Scope struct {
	reg       *Registry
	mu        sync.Mutex
	instances map[string]any
	group     singleflight.Group
}

func (s *Scope) get(ctx context.Context, name string) (any, error) {
	s.mu.Lock()
	if v, ok := s.instances[name]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(name, func() (any, error) {
		s.mu.Lock()
		if v, ok := s.instances[name]; ok {
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		f, ok := s.reg.factory(name)
		if !ok {
			return nil, fmt.Errorf("services: no provider for %q", name)
		}
		v, err := f(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("services: construct %q: %w", name, err)
		}
		s.mu.Lock()
		s.instances[name] = v
		s.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Resolve returns the instance of k for the scope's request.
func Resolve[T any](ctx context.Context, s *Scope, k Key[T]) (T, error) {
	var zero T
	if s == nil {
		return zero, fmt.Errorf("services: no request scope for %q", k.name)
	}
	v, err := s.get(ctx, k.name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("services: %q provided %T, want %T", k.name, v, zero)
	}
	return t, nil
}

// From resolves k from the scope attached to ctx.
func From[T any](ctx context.Context, k Key[T]) (T, error) {
	return Resolve(ctx, FromContext(ctx), k)
}

type scopeKey struct{}

// WithScope attaches s to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope attached to ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}
