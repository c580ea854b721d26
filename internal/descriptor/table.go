package descriptor

import "fmt"

// Table is the ordered set of described types of one model.
type Table struct {
	types map[TypeID]*Type
	order []TypeID
}

// NewTable returns a table holding types. It panics on duplicate identities;
// use Register for recoverable registration.
func NewTable(types ...Type) *Table {
	t := &Table{types: make(map[TypeID]*Type, len(types))}
	for _, typ := range types {
		if err := t.Register(typ); err != nil {
			panic(err)
		}
	}
	return t
}

// Register adds typ to the table.
func (t *Table) Register(typ Type) error {
	if typ.ID == "" {
		return fmt.Errorf("descriptor: type without identity")
	}
	if _, ok := t.types[typ.ID]; ok {
		return fmt.Errorf("descriptor: type %s already registered", typ.ID)
	}
	stored := typ
	stored.Properties = append([]Property(nil), typ.Properties...)
	stored.EnumValues = append([]EnumValue(nil), typ.EnumValues...)
	t.types[typ.ID] = &stored
	t.order = append(t.order, typ.ID)
	return nil
}

// Lookup returns the descriptor of id.
func (t *Table) Lookup(id TypeID) (*Type, bool) {
	if t == nil {
		return nil, false
	}
	typ, ok := t.types[id]
	return typ, ok
}

// Fields enumerates the properties of id in declaration order.
func (t *Table) Fields(id TypeID) []Property {
	typ, ok := t.Lookup(id)
	if !ok {
		return nil
	}
	return typ.Properties
}

// IDs returns all identities in registration order.
func (t *Table) IDs() []TypeID {
	if t == nil {
		return nil
	}
	return append([]TypeID(nil), t.order...)
}
