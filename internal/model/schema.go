// Package model is the immutable configuration builder a model author uses to
// describe the schema: which types are roots, how types and fields are named,
// which fields are resolved by which strategy.
//
// Every value in this package is persistent. Methods return a new value and
// leave the receiver untouched, so a configuration can be branched and
// reused freely. Nothing is validated here; the compiler reports every
// problem at once.
package model

import (
	"maps"
	"slices"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/scalar"
)

// SchemaConfig is the configuration of a whole schema.
type SchemaConfig struct {
	Query       descriptor.TypeID
	Mutation    descriptor.TypeID
	Scalars     *scalar.Map
	Descriptors *descriptor.Table

	types map[descriptor.TypeID]TypeConfig
}

// NewSchema starts a configuration over the described types, using the
// builtin scalar map.
func NewSchema(table *descriptor.Table) SchemaConfig {
	return SchemaConfig{
		Scalars:     scalar.NewMap(),
		Descriptors: table,
		types:       map[descriptor.TypeID]TypeConfig{},
	}
}

func (s SchemaConfig) WithQuery(id descriptor.TypeID) SchemaConfig {
	s.Query = id
	return s
}

func (s SchemaConfig) WithMutation(id descriptor.TypeID) SchemaConfig {
	s.Mutation = id
	return s
}

func (s SchemaConfig) WithScalars(m *scalar.Map) SchemaConfig {
	s.Scalars = m
	return s
}

// Type returns the configuration of id: the configured one if any, the
// descriptor default otherwise. ok is false when id is neither configured
// nor described.
func (s SchemaConfig) Type(id descriptor.TypeID) (TypeConfig, bool) {
	if t, ok := s.types[id]; ok {
		return t, true
	}
	desc, ok := s.Descriptors.Lookup(id)
	if !ok {
		return TypeConfig{ID: id, Name: id.Name()}, false
	}
	return NewType(desc), true
}

// Configure applies fn to the configuration of id.
func (s SchemaConfig) Configure(id descriptor.TypeID, fn func(TypeConfig) TypeConfig) SchemaConfig {
	t, _ := s.Type(id)
	s.types = maps.Clone(s.types)
	if s.types == nil {
		s.types = map[descriptor.TypeID]TypeConfig{}
	}
	s.types[id] = fn(t)
	return s
}

// Configured lists the identities that were configured explicitly, sorted.
func (s SchemaConfig) Configured() []descriptor.TypeID {
	return slices.Sorted(maps.Keys(s.types))
}

// Implementers returns the configured types declaring the interface id,
// sorted by identity.
func (s SchemaConfig) Implementers(id descriptor.TypeID) []TypeConfig {
	var out []TypeConfig
	for _, tid := range s.Configured() {
		if t := s.types[tid]; t.Implements(id) {
			out = append(out, t)
		}
	}
	return out
}
