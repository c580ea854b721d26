package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/guard"
	"github.com/hanpama/graphkit/internal/model"
	"github.com/hanpama/graphkit/internal/ordering"
	"github.com/hanpama/graphkit/internal/resolve"
	"github.com/hanpama/graphkit/internal/scalar"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

var errNoType = errors.New("no declared type")

// cache builds one canonical node per modeled type. A node is stored before
// its fields are populated so that recursive references find it.
type cache struct {
	cfg model.SchemaConfig
	req *services.Requirements
	log *logrus.Entry

	outputs map[descriptor.TypeID]*schema.Type
	inputs  map[descriptor.TypeID]*schema.Type
	enums   map[descriptor.TypeID]*schema.Type
	scalars map[string]*schema.Type
	synth   map[string]*schema.Type

	// owners records what produced each node name.
	owners     map[string][]string
	violations []*Violation
}

var _ resolve.Builder = (*cache)(nil)

func newCache(cfg model.SchemaConfig, req *services.Requirements, log *logrus.Entry) *cache {
	return &cache{
		cfg:     cfg,
		req:     req,
		log:     log,
		outputs: map[descriptor.TypeID]*schema.Type{},
		inputs:  map[descriptor.TypeID]*schema.Type{},
		enums:   map[descriptor.TypeID]*schema.Type{},
		scalars: map[string]*schema.Type{},
		synth:   map[string]*schema.Type{},
		owners:  map[string][]string{},
	}
}

func (c *cache) violate(v ...*Violation) { c.violations = append(c.violations, v...) }

func (c *cache) own(name, owner string) {
	if !slices.Contains(c.owners[name], owner) {
		c.owners[name] = append(c.owners[name], owner)
	}
}

// duplicates reports every name produced by more than one owner, sorted by
// name.
func (c *cache) duplicates() []*Violation {
	var out []*Violation
	for _, name := range slices.Sorted(maps.Keys(c.owners)) {
		if owners := c.owners[name]; len(owners) > 1 {
			out = append(out, violationDuplicateName(name, slices.Sorted(slices.Values(owners))))
		}
	}
	return out
}

// nodes returns every node built so far.
func (c *cache) nodes() []*schema.Type {
	var out []*schema.Type
	for _, m := range []map[descriptor.TypeID]*schema.Type{c.outputs, c.inputs, c.enums} {
		out = slices.AppendSeq(out, maps.Values(m))
	}
	out = slices.AppendSeq(out, maps.Values(c.scalars))
	return slices.AppendSeq(out, maps.Values(c.synth))
}

// ----- output types -----

func (c *cache) OutputType(ref descriptor.TypeRef) (*schema.TypeRef, error) {
	if ref.ID == "" {
		return nil, errNoType
	}
	node, nullable, err := c.leaf(ref)
	if err != nil {
		return nil, err
	}
	if node == nil {
		if node, err = c.output(ref.Elem()); err != nil {
			return nil, err
		}
	}
	return wrap(schema.Ref(node), ref, nullable), nil
}

func (c *cache) output(id descriptor.TypeID) (*schema.Type, error) {
	if t, ok := c.outputs[id]; ok {
		return t, nil
	}
	cfg, ok := c.cfg.Type(id)
	if !ok {
		return nil, fmt.Errorf("unknown type %s", id)
	}
	kind := schema.TypeKindObject
	switch cfg.Kind {
	case descriptor.KindInterface:
		kind = schema.TypeKindInterface
	case descriptor.KindEnum, descriptor.KindScalar:
		return nil, fmt.Errorf("%s is a %s and has no fields", id, cfg.Kind)
	}

	t := schema.NewType(cfg.Name, kind, cfg.Description)
	t.ID = id
	c.outputs[id] = t
	c.own(t.Name, string(id))

	for _, f := range cfg.Relevant() {
		if field := c.field(cfg, f); field != nil {
			t.AddField(field)
		}
	}
	for _, ifaceID := range cfg.Interfaces() {
		iface, err := c.output(ifaceID)
		if err != nil {
			c.violate(violationType(id, err))
			continue
		}
		if iface.Kind != schema.TypeKindInterface {
			c.violate(violationType(id, fmt.Errorf("%s is not an interface", ifaceID)))
			continue
		}
		t.AddInterface(iface.Name)
	}
	if kind == schema.TypeKindInterface {
		c.possibleTypes(cfg, t)
	}

	c.log.WithFields(logrus.Fields{"type": t.Name, "fields": len(t.Fields)}).Debug("compiled type")
	return t, nil
}

func (c *cache) possibleTypes(cfg model.TypeConfig, t *schema.Type) {
	desc, _ := c.cfg.Descriptors.Lookup(cfg.ID)
	names := map[descriptor.TypeID]string{}
	for _, impl := range c.cfg.Implementers(cfg.ID) {
		node, err := c.output(impl.ID)
		if err != nil {
			c.violate(violationType(impl.ID, err))
			continue
		}
		names[impl.ID] = node.Name
		t.AddPossibleType(node.Name)
	}
	t.ResolveType = func(value any) (string, error) {
		id, ok := descriptor.TagOf(desc, value)
		if !ok {
			return "", fmt.Errorf("cannot determine the concrete type of %T for interface %s", value, t.Name)
		}
		name, ok := names[id]
		if !ok {
			return "", fmt.Errorf("%s is not a possible type of interface %s", id, t.Name)
		}
		return name, nil
	}
}

// field compiles one field. It returns nil after recording a violation.
func (c *cache) field(owner model.TypeConfig, f model.FieldConfig) *schema.Field {
	prop := f.Property.Name
	info := resolve.Field{Type: owner.ID, TypeName: owner.Name, Name: f.Name, Property: f.Property}
	field := &schema.Field{
		Name:              f.Name,
		Description:       f.Description,
		IsDeprecated:      f.Deprecation != "",
		DeprecationReason: f.Deprecation,
	}

	if r := f.Resolver; r != nil {
		if f.OrderBy != nil {
			o, ok := r.(resolve.Orderable)
			if !ok {
				c.violate(violationNotOrderable(prop, owner.ID))
				return nil
			}
			r = o.WithOrdering(f.OrderBy)
		}
		typ, err := r.GraphType(c)
		if err != nil {
			c.violate(violationField(prop, owner.ID, err))
			return nil
		}
		args, err := r.Arguments(c)
		if err != nil {
			c.violate(violationField(prop, owner.ID, err))
			return nil
		}
		r.Register(c.req, info.Path())
		fn := r.Resolver(info)
		field.Type = typ
		field.Arguments = args
		field.Async = r.Async()
		field.Resolve = func(ctx context.Context, source any, args map[string]any) (any, error) {
			return fn(ctx, resolve.Params{Source: source, Args: args})
		}
	} else {
		var node *schema.Type
		var nullable bool
		if f.Property.Type.ID != "" {
			var err error
			if node, nullable, err = c.leaf(f.Property.Type); err != nil {
				c.violate(violationField(prop, owner.ID, err))
				return nil
			}
		}
		if node == nil || !f.Property.Readable() {
			c.violate(violationUnresolvedField(prop, owner.ID))
			return nil
		}
		field.Type = wrap(schema.Ref(node), f.Property.Type, nullable)
		get := f.Property.Get
		field.Resolve = func(_ context.Context, source any, _ map[string]any) (any, error) {
			if source == nil {
				return nil, nil
			}
			return get(source), nil
		}
	}

	field.Type = override(field.Type, f.Nullability)
	if f.Guarded() {
		if field.Type.IsNonNull() {
			c.violate(violationGuardedNonNull(prop, owner.ID))
			return nil
		}
		f.Guard.Register(c.req, info.Path())
		field.Resolve = guard.Wrap(f.Guard, owner.Name, f.Name, field.Resolve)
	}
	return field
}

// ----- leaves -----

// leaf returns the scalar or enumeration node serving ref, together with the
// intrinsic nullability of the value type. It returns a nil node when ref is
// not a leaf.
func (c *cache) leaf(ref descriptor.TypeRef) (*schema.Type, bool, error) {
	if l, ok := c.cfg.Scalars.Lookup(ref); ok {
		if l.Enum {
			t, err := c.enum(l.EnumID)
			return t, l.Nullable, err
		}
		return c.scalar(l.Scalar), l.Nullable, nil
	}
	desc, ok := c.cfg.Descriptors.Lookup(ref.Elem())
	if !ok {
		return nil, false, nil
	}
	switch desc.Kind {
	case descriptor.KindEnum:
		t, err := c.enum(desc.ID)
		return t, false, err
	case descriptor.KindScalar:
		return nil, false, fmt.Errorf("no scalar is mapped for %s", desc.ID)
	}
	return nil, false, nil
}

func (c *cache) scalar(s *scalar.Scalar) *schema.Type {
	if t, ok := c.scalars[s.Name]; ok {
		return t
	}
	t := schema.ScalarType(s)
	c.scalars[s.Name] = t
	c.own(s.Name, "scalar "+s.Name)
	return t
}

func (c *cache) enum(id descriptor.TypeID) (*schema.Type, error) {
	if t, ok := c.enums[id]; ok {
		return t, nil
	}
	desc, ok := c.cfg.Descriptors.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("enumeration %s is not described", id)
	}
	cfg, _ := c.cfg.Type(id)
	t := schema.NewType(cfg.Name, schema.TypeKindEnum, cfg.Description)
	t.ID = id
	for _, v := range desc.EnumValues {
		t.AddEnumValue(&schema.EnumValue{
			Name:              v.Name,
			Description:       v.Description,
			IsDeprecated:      v.Deprecation != "",
			DeprecationReason: v.Deprecation,
			Value:             v.Value,
		})
	}
	c.enums[id] = t
	c.own(t.Name, string(id))
	return t, nil
}

// ----- input types -----

func (c *cache) InputFields(id descriptor.TypeID) ([]*schema.InputValue, error) {
	cfg, ok := c.cfg.Type(id)
	if !ok {
		return nil, fmt.Errorf("unknown input type %s", id)
	}
	var out []*schema.InputValue
	for _, f := range cfg.Relevant() {
		typ, err := c.inputType(f.Property.Type)
		if err != nil {
			return nil, fmt.Errorf("input field %s.%s: %w", cfg.InputSchemaName(), f.Name, err)
		}
		in := &schema.InputValue{
			Name:              f.Name,
			Description:       f.Description,
			Type:              override(typ, f.Nullability),
			IsDeprecated:      f.Deprecation != "",
			DeprecationReason: f.Deprecation,
		}
		if l, ok := c.cfg.Scalars.Lookup(f.Property.Type); ok && !l.Enum {
			in.Scalar = l.Scalar
		}
		out = append(out, in)
	}
	return out, nil
}

func (c *cache) inputType(ref descriptor.TypeRef) (*schema.TypeRef, error) {
	if ref.ID == "" {
		return nil, errNoType
	}
	node, nullable, err := c.leaf(ref)
	if err != nil {
		return nil, err
	}
	if node == nil {
		if node, err = c.input(ref.Elem()); err != nil {
			return nil, err
		}
	}
	return wrap(schema.Ref(node), ref, nullable), nil
}

func (c *cache) input(id descriptor.TypeID) (*schema.Type, error) {
	if t, ok := c.inputs[id]; ok {
		return t, nil
	}
	cfg, ok := c.cfg.Type(id)
	if !ok {
		return nil, fmt.Errorf("unknown input type %s", id)
	}
	if cfg.Kind != descriptor.KindObject {
		return nil, fmt.Errorf("%s %s cannot be used as an input type", cfg.Kind, id)
	}
	t := schema.NewType(cfg.InputSchemaName(), schema.TypeKindInputObject, cfg.Description)
	t.ID = id
	c.inputs[id] = t
	c.own(t.Name, string(id)+" (input)")

	fields, err := c.InputFields(id)
	if err != nil {
		return nil, err
	}
	t.InputFields = fields
	return t, nil
}

// ----- generated types -----

func (c *cache) Synthesize(name string, kind schema.TypeKind, build func(t *schema.Type) error) (*schema.Type, error) {
	if t, ok := c.synth[name]; ok {
		if t.Kind != kind {
			return nil, fmt.Errorf("type %s is generated as both %s and %s", name, t.Kind, kind)
		}
		return t, nil
	}
	t := schema.NewType(name, kind, "")
	c.synth[name] = t
	c.own(name, "generated "+name)
	if err := build(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *cache) OrderingEnum(o *ordering.Builder) (*schema.Type, error) {
	if err := o.Err(); err != nil {
		return nil, err
	}
	return c.Synthesize(o.EnumName(), schema.TypeKindEnum, func(t *schema.Type) error {
		values := o.Values()
		if len(values) == 0 {
			return fmt.Errorf("ordering %s has no values", o.EnumName())
		}
		for _, v := range values {
			t.AddEnumValue(&schema.EnumValue{Name: v.Name, Value: v.Name})
		}
		return nil
	})
}

// ----- wrapping -----

// wrap applies list and nullability wrappers of ref around named. A nullable
// value type keeps the element nullable.
func wrap(named *schema.TypeRef, ref descriptor.TypeRef, intrinsic bool) *schema.TypeRef {
	intrinsic = intrinsic || ref.Elem() != ref.ID
	if !ref.List {
		if ref.Nullable || intrinsic {
			return named
		}
		return schema.NonNullType(named)
	}
	elem := named
	if !ref.ElemNullable && !intrinsic {
		elem = schema.NonNullType(named)
	}
	list := schema.ListType(elem)
	if ref.Nullable {
		return list
	}
	return schema.NonNullType(list)
}

// override applies a field's nullability override to the outer type.
func override(t *schema.TypeRef, n model.Nullability) *schema.TypeRef {
	switch n {
	case model.NonNull:
		if !t.IsNonNull() {
			return schema.NonNullType(t)
		}
	case model.Nullable:
		return t.Nullable()
	}
	return t
}
