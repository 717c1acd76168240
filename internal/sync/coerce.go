package sync

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/units"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// coerce normalizes a value scanned from either source driver to the Go type
// bound for the analytical column: int64, float64, string or time.Time.
func coerce(v any, typ string) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch typ {
	case schema.BigInt, schema.Integer:
		return toInt(v)
	case schema.Double:
		return toDouble(v)
	case schema.Timestamp:
		return toTime(v)
	case schema.Varchar:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("unknown column type %s", typ)
}

func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case int:
		return int64(n), nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: %v is not an integer", units.ErrMalformed, n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", units.ErrMalformed, n)
		}
		return i, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", units.ErrMalformed, v)
}

func toDouble(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", units.ErrMalformed, n)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", units.ErrMalformed, v)
}

func toTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not a timestamp", units.ErrMalformed, t)
	}
	return nil, fmt.Errorf("%w: unsupported type %T", units.ErrMalformed, v)
}
