package compiler

import (
	"maps"
	"slices"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/model"
)

// Reachable is the part of a schema configuration exposed through the roots.
type Reachable struct {
	Output map[descriptor.TypeID]model.TypeConfig
	Input  map[descriptor.TypeID]model.TypeConfig
	// Unknown lists referenced identities that are neither configured nor
	// described, sorted.
	Unknown []descriptor.TypeID
}

// Analyze walks the configuration from the Query and Mutation roots.
//
// Leaf fields contribute nothing. Other fields enqueue their element type,
// and their arguments type is set aside as an input type. Interfaces pull in
// every type declaring them. Once the output frontier is exhausted the input
// types are expanded through their non-leaf properties.
func Analyze(cfg model.SchemaConfig) Reachable {
	r := Reachable{
		Output: map[descriptor.TypeID]model.TypeConfig{},
		Input:  map[descriptor.TypeID]model.TypeConfig{},
	}
	unknown := map[descriptor.TypeID]bool{}

	var queue, pending []descriptor.TypeID
	enqueue := func(id descriptor.TypeID) {
		if id == "" {
			return
		}
		if _, ok := r.Output[id]; ok {
			return
		}
		t, ok := cfg.Type(id)
		if !ok {
			unknown[id] = true
			return
		}
		r.Output[id] = t
		queue = append(queue, id)
	}

	enqueue(cfg.Query)
	enqueue(cfg.Mutation)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		t := r.Output[id]

		if t.Kind == descriptor.KindInterface {
			for _, impl := range cfg.Implementers(id) {
				enqueue(impl.ID)
			}
		}
		for _, iface := range t.Interfaces() {
			enqueue(iface)
		}
		for _, f := range t.Relevant() {
			if args, ok := f.ArgumentsType(); ok {
				pending = append(pending, args)
			}
			ref := f.Returns()
			if isLeaf(cfg, ref) {
				continue
			}
			enqueue(ref.Elem())
		}
	}

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if _, ok := r.Input[id]; ok {
			continue
		}
		t, ok := cfg.Type(id)
		if !ok {
			unknown[id] = true
			continue
		}
		r.Input[id] = t
		for _, f := range t.Relevant() {
			if ref := f.Property.Type; !isLeaf(cfg, ref) && ref.ID != "" {
				pending = append(pending, ref.Elem())
			}
		}
	}

	r.Unknown = slices.Sorted(maps.Keys(unknown))
	return r
}

// isLeaf reports whether ref is served by a scalar or an enumeration.
func isLeaf(cfg model.SchemaConfig, ref descriptor.TypeRef) bool {
	if ref.ID == "" {
		return false
	}
	if _, ok := cfg.Scalars.Lookup(ref); ok {
		return true
	}
	desc, ok := cfg.Descriptors.Lookup(ref.Elem())
	return ok && (desc.Kind == descriptor.KindEnum || desc.Kind == descriptor.KindScalar)
}
