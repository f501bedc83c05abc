package schema

import (
	"fmt"

	"github.com/rpattn/billingapi/pkg/validator"
)

// Coerce converts a raw decoded value into the canonical Go value for t:
// string, int64, float64, bool, time.Time or uuid.UUID. nil passes through.
func Coerce(t DataType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch t {
	case TypeText:
		return validator.ToText(raw)
	case TypeInteger:
		return validator.ToInteger(raw)
	case TypeFloat:
		return validator.ToFloat(raw)
	case TypeBoolean:
		return validator.ToBool(raw)
	case TypeDateTime:
		return validator.ToTime(raw)
	case TypeUUID:
		return validator.ToUUID(raw)
	default:
		return nil, fmt.Errorf("unsupported data type %q", t)
	}
}

// CoerceField converts raw into the value type of a scalar field.
func CoerceField(f *Field, raw any) (any, error) {
	if !f.IsScalar() {
		return nil, fmt.Errorf("field %s is not a scalar", f.Name)
	}
	v, err := Coerce(f.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return v, nil
}
