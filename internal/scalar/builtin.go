package scalar

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/hanpama/graphkit/internal/descriptor"
)

// Protobuf well-known type identities.
const (
	ProtoTimestamp   descriptor.TypeID = "google.protobuf.Timestamp"
	ProtoDuration    descriptor.TypeID = "google.protobuf.Duration"
	ProtoInt64Value  descriptor.TypeID = "google.protobuf.Int64Value"
	ProtoStringValue descriptor.TypeID = "google.protobuf.StringValue"
	ProtoBoolValue   descriptor.TypeID = "google.protobuf.BoolValue"
)

var String = Scalar{
	Name:        "String",
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Serialize:   serializeString,
	Parse:       parseString,
}

var Int = Scalar{
	Name:        "Int",
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Serialize:   serializeInt,
	Parse:       serializeInt,
}

var Long = Scalar{
	Name:        "Long",
	Description: "The `Long` scalar type represents 64-bit signed whole numeric values.",
	Serialize:   serializeLong,
	Parse:       serializeLong,
}

var Float = Scalar{
	Name:        "Float",
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Serialize:   serializeFloat,
	Parse:       serializeFloat,
}

var Boolean = Scalar{
	Name:        "Boolean",
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Serialize:   serializeBool,
	Parse:       serializeBool,
}

var ID = Scalar{
	Name:        "ID",
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
	Serialize:   serializeID,
	Parse:       serializeID,
}

var DateTime = Scalar{
	Name:           "DateTime",
	Description:    "An RFC 3339 date-time string.",
	SpecifiedByURL: "https://datatracker.ietf.org/doc/html/rfc3339",
	Serialize:      serializeDateTime,
	Parse:          parseTime,
}

var Duration = Scalar{
	Name:        "Duration",
	Description: "A duration string such as \"1h30m\".",
	Serialize:   serializeDuration,
	Parse:       parseDuration,
}

var UUID = Scalar{
	Name:        "UUID",
	Description: "An RFC 4122 UUID string.",
	Serialize:   serializeUUID,
	Parse:       parseUUID,
}

// NewMap returns a map populated with the builtin value types.
func NewMap() *Map {
	m := Empty().
		With(descriptor.String, String).
		With(descriptor.Int, Int).
		With(descriptor.Int64, Long).
		With(descriptor.Float64, Float).
		With(descriptor.Bool, Boolean).
		With(descriptor.ID, ID).
		With(descriptor.Time, DateTime).
		With(descriptor.UUID, UUID).
		With(ProtoTimestamp, protoTimestamp).
		With(ProtoDuration, Duration).
		WithNullable(ProtoInt64Value, protoInt64).
		WithNullable(ProtoStringValue, protoString).
		WithNullable(ProtoBoolValue, protoBool)
	return m.alias(descriptor.Int32, descriptor.Int).alias(descriptor.Float32, descriptor.Float64)
}

// ----- protobuf well-known types -----

var protoTimestamp = Scalar{
	Name:           DateTime.Name,
	Description:    DateTime.Description,
	SpecifiedByURL: DateTime.SpecifiedByURL,
	Serialize:      serializeDateTime,
	Parse: func(input any) (any, error) {
		t, err := parseTime(input)
		if err != nil || t == nil {
			return nil, err
		}
		return timestamppb.New(t.(time.Time)), nil
	},
}

var protoInt64 = Scalar{
	Name:        Long.Name,
	Description: Long.Description,
	Serialize: func(value any) (any, error) {
		if w, ok := value.(*wrapperspb.Int64Value); ok {
			if w == nil {
				return nil, nil
			}
			return w.GetValue(), nil
		}
		return serializeLong(value)
	},
	Parse: func(input any) (any, error) {
		v, err := serializeLong(input)
		if err != nil || v == nil {
			return nil, err
		}
		return wrapperspb.Int64(v.(int64)), nil
	},
}

var protoString = Scalar{
	Name:        String.Name,
	Description: String.Description,
	Serialize: func(value any) (any, error) {
		if w, ok := value.(*wrapperspb.StringValue); ok {
			if w == nil {
				return nil, nil
			}
			return w.GetValue(), nil
		}
		return serializeString(value)
	},
	Parse: func(input any) (any, error) {
		v, err := parseString(input)
		if err != nil || v == nil {
			return nil, err
		}
		return wrapperspb.String(v.(string)), nil
	},
}

var protoBool = Scalar{
	Name:        Boolean.Name,
	Description: Boolean.Description,
	Serialize: func(value any) (any, error) {
		if w, ok := value.(*wrapperspb.BoolValue); ok {
			if w == nil {
				return nil, nil
			}
			return w.GetValue(), nil
		}
		return serializeBool(value)
	},
	Parse: func(input any) (any, error) {
		v, err := serializeBool(input)
		if err != nil || v == nil {
			return nil, err
		}
		return wrapperspb.Bool(v.(bool)), nil
	},
}

// ----- converters -----

// deref unwraps pointers and protobuf wrappers so that every scalar sharing a
// schema name serializes the same set of Go values.
func deref(value any) any {
	switch v := value.(type) {
	case *string:
		if v != nil {
			return *v
		}
	case *int:
		if v != nil {
			return *v
		}
	case *int32:
		if v != nil {
			return *v
		}
	case *int64:
		if v != nil {
			return *v
		}
	case *float32:
		if v != nil {
			return *v
		}
	case *float64:
		if v != nil {
			return *v
		}
	case *bool:
		if v != nil {
			return *v
		}
	case *time.Time:
		if v != nil {
			return *v
		}
	case *uuid.UUID:
		if v != nil {
			return *v
		}
	case *wrapperspb.StringValue:
		if v != nil {
			return v.GetValue()
		}
	case *wrapperspb.Int64Value:
		if v != nil {
			return v.GetValue()
		}
	case *wrapperspb.BoolValue:
		if v != nil {
			return v.GetValue()
		}
	default:
		return value
	}
	return nil
}

func serializeString(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("String cannot represent %T", value)
	}
}

func parseString(input any) (any, error) {
	switch v := input.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("String cannot represent a non string value: %v", input)
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func serializeInt(value any) (any, error) {
	v := deref(value)
	if v == nil {
		return nil, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int(n), nil
}

func serializeLong(value any) (any, error) {
	v := deref(value)
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Long cannot represent %q", s)
		}
		return n, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("Long cannot represent non-integer value: %v", value)
	}
	return n, nil
}

func serializeFloat(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
		return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
	}
}

func serializeBool(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	default:
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	}
}

func serializeID(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		if n, ok := toInt64(v); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return nil, fmt.Errorf("ID cannot represent value: %v", value)
	}
}

func serializeDateTime(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case *timestamppb.Timestamp:
		if v == nil {
			return nil, nil
		}
		return v.AsTime().UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("DateTime cannot represent %T", value)
	}
}

func parseTime(input any) (any, error) {
	switch v := input.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("DateTime cannot represent %q: %w", v, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("DateTime cannot represent %T", input)
	}
}

func serializeDuration(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v.String(), nil
	case *durationpb.Duration:
		if v == nil {
			return nil, nil
		}
		return v.AsDuration().String(), nil
	default:
		return nil, fmt.Errorf("Duration cannot represent %T", value)
	}
}

func parseDuration(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		if input == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("Duration cannot represent %T", input)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("Duration cannot represent %q: %w", s, err)
	}
	return durationpb.New(d), nil
}

func serializeUUID(value any) (any, error) {
	switch v := deref(value).(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v.String(), nil
	case string:
		if _, err := uuid.Parse(v); err != nil {
			return nil, fmt.Errorf("UUID cannot represent %q: %w", v, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("UUID cannot represent %T", value)
	}
}

func parseUUID(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		if input == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("UUID cannot represent %T", input)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("UUID cannot represent %q: %w", s, err)
	}
	return id, nil
}
