package executor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/schema"
)

// coerceVariableValues applies the variable definitions of op to input.
func (s *executionState) coerceVariableValues(op *gql.OperationDefinition, input map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, def := range op.VariableDefinitions {
		t := typeRefFromAST(def.Type)
		value, ok := input[def.Variable]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				v, err := def.DefaultValue.Value(nil)
				if err != nil {
					return nil, fmt.Errorf("variable $%s: %w", def.Variable, err)
				}
				value = v
			case t.IsNonNull():
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", def.Variable, t)
			default:
				continue
			}
		}
		coerced, err := s.coerceValue(value, t, nil, false)
		if err != nil {
			return nil, fmt.Errorf("variable $%s: %w", def.Variable, err)
		}
		out[def.Variable] = coerced
	}
	return out, nil
}

// argumentValues coerces the arguments of one field. Arguments that cannot
// be coerced are reported at path and left out.
func (s *executionState) argumentValues(def *schema.Field, args gql.ArgumentList, path Path) map[string]any {
	out := make(map[string]any, len(def.Arguments))
	for _, arg := range def.Arguments {
		node := args.ForName(arg.Name)
		if node != nil && node.Value.Kind == gql.Variable {
			if _, ok := s.variables[node.Value.Raw]; !ok {
				node = nil
			}
		}
		if node == nil {
			switch {
			case arg.DefaultValue != nil:
				out[arg.Name] = arg.DefaultValue
			case arg.Type.IsNonNull():
				s.addError(fmt.Sprintf("argument %q of required type %s was not provided", arg.Name, arg.Type), path)
			}
			continue
		}

		raw, err := node.Value.Value(s.variables)
		if err == nil {
			raw, err = s.coerceValue(raw, arg.Type, arg, true)
		}
		if err != nil {
			s.addError(fmt.Sprintf("argument %q: %v", arg.Name, err), path)
			continue
		}
		out[arg.Name] = raw
	}
	return out
}

// coerceValue coerces value to t, the type of the input definition in. With
// parse set, custom scalars are parsed and enum names become their member
// values; variables are coerced without it and parsed where they are used.
func (s *executionState) coerceValue(value any, t *schema.TypeRef, in *schema.InputValue, parse bool) (any, error) {
	if t.IsNonNull() {
		if value == nil {
			return nil, fmt.Errorf("null is not a valid %s", t)
		}
		return s.coerceValue(value, t.OfType, in, parse)
	}
	if value == nil {
		return nil, nil
	}
	if t.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := s.coerceValue(item, t.OfType, in, parse)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	name := t.GetNamedType()
	switch name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("String cannot represent %v", value)
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent %v", value)
	case "ID":
		return coerceID(value)
	}

	named := s.schema.Types[name]
	if named == nil {
		return nil, fmt.Errorf("unknown input type %s", name)
	}
	switch named.Kind {
	case schema.TypeKindScalar:
		switch {
		case !parse:
			return value, nil
		case in != nil && in.Scalar != nil:
			if in.Scalar.Parse == nil {
				return value, nil
			}
			return in.Scalar.Parse(value)
		}
		return s.runtime.ParseLeafValue(s.ctx, name, value)
	case schema.TypeKindEnum:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s cannot represent %v", name, value)
		}
		for _, v := range named.EnumValues {
			if v.Name != str {
				continue
			}
			if parse && v.Value != nil {
				return v.Value, nil
			}
			return str, nil
		}
		return nil, fmt.Errorf("%q is not a value of enum %s", str, name)
	case schema.TypeKindInputObject:
		return s.coerceInputObject(named, value, parse)
	}
	return nil, fmt.Errorf("%s is not an input type", name)
}

func (s *executionState) coerceInputObject(t *schema.Type, value any, parse bool) (map[string]any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s expects an object, got %T", t.Name, value)
	}
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		v, ok := fields[f.Name]
		if !ok {
			switch {
			case f.DefaultValue != nil:
				out[f.Name] = f.DefaultValue
			case f.Type.IsNonNull():
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
			}
			continue
		}
		coerced, err := s.coerceValue(v, f.Type, f, parse)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = coerced
	}
	for name := range fields {
		if !hasInputField(t, name) {
			return nil, fmt.Errorf("%s has no field %q", t.Name, name)
		}
	}
	return out, nil
}

func hasInputField(t *schema.Type, name string) bool {
	for _, f := range t.InputFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func typeRefFromAST(t *gql.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

// coerceInt yields an int, the representation arguments use for Int.
func coerceInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("Int cannot represent non-integer value %v", v)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent %q", v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("Int cannot represent %v (%T)", value, value)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value %d", n)
	}
	return int(n), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("Float cannot represent %v (%T)", value, value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent %v (%T)", value, value)
}
