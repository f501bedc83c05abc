package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayouts lists the accepted textual date/time formats, tried in order.
var TimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ToText converts a raw scalar into a string.
func ToText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cannot use %T as text", value)
	}
}

// ToInteger converts a raw scalar into an int64. Fractional numbers are rejected.
func ToInteger(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return floatToInteger(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return ToInteger(v.String())
	case string:
		trimmed := strings.TrimSpace(v)
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err == nil {
			return i, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q is out of integer range", v)
		}
		f, ferr := strconv.ParseFloat(trimmed, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return floatToInteger(f)
	default:
		return 0, fmt.Errorf("cannot use %T as integer", value)
	}
}

// floatToInteger accepts integral values in [-2^63, 2^63).
func floatToInteger(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= -math.MinInt64 {
		return 0, fmt.Errorf("%v is out of integer range", f)
	}
	return int64(f), nil
}

// ToFloat converts a raw scalar into a float64.
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v.String())
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return finite(f)
	default:
		return 0, fmt.Errorf("cannot use %T as number", value)
	}
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

// ToBool converts a raw scalar into a bool.
func ToBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot use %T as boolean", value)
	}
}

// ToTime converts a raw scalar into a UTC time. Strings are tried against TimeLayouts.
func ToTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return v.UTC(), nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range TimeLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a recognised date/time", v)
	default:
		return time.Time{}, fmt.Errorf("cannot use %T as date/time", value)
	}
}

// ToUUID converts a raw scalar into a UUID.
func ToUUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return uuid.Nil, fmt.Errorf("%q is not a valid UUID", v)
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("cannot use %T as UUID", value)
	}
}
