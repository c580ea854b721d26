package executor

import (
	"strconv"
	"strings"
)

// Path locates a value in the response. Elements are response keys
// (string) and list indices (int).
type Path []any

func (p Path) with(elem any) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

func (p Path) clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// String renders p as a dotted path, e.g. "customer.orders.0.id".
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		switch e := elem.(type) {
		case string:
			b.WriteString(e)
		case int:
			b.WriteString(strconv.Itoa(e))
		}
	}
	return b.String()
}

func (s *executionState) nullify(p Path) {
	s.nullified[p.String()] = struct{}{}
}

func (s *executionState) require(p Path) {
	s.required[p.String()] = struct{}{}
}

// nullableAncestor returns the closest ancestor of p that may hold null. A
// chain of non-null positions up to the root ends at the root field.
func (s *executionState) nullableAncestor(p Path) Path {
	for i := len(p) - 1; i > 1; i-- {
		if _, ok := s.required[p[:i].String()]; !ok {
			return p[:i]
		}
	}
	return p[:1]
}

// isNullified reports whether p or one of its ancestors was nulled.
func (s *executionState) isNullified(p Path) bool {
	for i := len(p); i > 0; i-- {
		if _, ok := s.nullified[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

// setValueAtPath writes value into the response tree. Missing objects along
// the way are created; writes below a null or a short list are dropped.
func setValueAtPath(root map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	var cur any = root
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = map[string]any{}
				m[e] = next
			}
			cur = next
		case int:
			l, ok := cur.([]any)
			if !ok || e >= len(l) {
				return
			}
			cur = l[e]
		}
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[e] = value
		}
	case int:
		if l, ok := cur.([]any); ok && e < len(l) {
			l[e] = value
		}
	}
}
