// Package stats turns raw match and per-game stat records into season totals.
package stats

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalize converts any raw field value into a finite number. Unparsable
// strings, nil, non-finite numbers and unsupported types all become 0.
func Normalize(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// normalizeCount is Normalize clamped at zero, for quantities that are
// accumulated into season totals.
func normalizeCount(v any) float64 {
	f := Normalize(v)
	if f < 0 {
		return 0
	}
	return f
}
