package compiler

import (
	"fmt"
	"strings"

	"github.com/hanpama/graphkit/internal/descriptor"
)

// Violation is one problem found while compiling a schema configuration.
type Violation struct {
	Message string            `json:"message"`
	Type    descriptor.TypeID `json:"type,omitempty"`
	Field   string            `json:"field,omitempty"`
}

// ValidationError carries every violation of one compilation.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		msg += "- " + v.Message + "\n"
	}
	return msg
}

// Messages lists the violation messages in report order.
func (e ValidationError) Messages() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Message
	}
	return out
}

// Keep messages stable; tests match on them.

func violationUnresolvedField(property string, typ descriptor.TypeID) *Violation {
	return &Violation{
		Message: fmt.Sprintf("Unresolved field %q of type %s: no resolver is configured and the property is not a readable scalar", property, typ),
		Type:    typ,
		Field:   property,
	}
}

func violationGuardedNonNull(property string, typ descriptor.TypeID) *Violation {
	return &Violation{
		Message: fmt.Sprintf("Guarded field %q of type %s must be nullable", property, typ),
		Type:    typ,
		Field:   property,
	}
}

func violationNotOrderable(property string, typ descriptor.TypeID) *Violation {
	return &Violation{
		Message: fmt.Sprintf("Field %q of type %s has an ordering but its resolver does not accept one", property, typ),
		Type:    typ,
		Field:   property,
	}
}

func violationField(property string, typ descriptor.TypeID, err error) *Violation {
	return &Violation{
		Message: fmt.Sprintf("Field %q of type %s: %v", property, typ, err),
		Type:    typ,
		Field:   property,
	}
}

func violationType(typ descriptor.TypeID, err error) *Violation {
	return &Violation{Message: fmt.Sprintf("Type %s: %v", typ, err), Type: typ}
}

func violationUnknownType(typ descriptor.TypeID) *Violation {
	return &Violation{Message: fmt.Sprintf("Unknown type %s is referenced but neither configured nor described", typ), Type: typ}
}

func violationDuplicateName(name string, owners []string) *Violation {
	return &Violation{
		Message: fmt.Sprintf("Duplicate type name %q declared by %s", name, strings.Join(owners, ", ")),
	}
}

func violationMissingService(name, by string) *Violation {
	return &Violation{Message: fmt.Sprintf("No provider registered for service %q required by %s", name, by)}
}
