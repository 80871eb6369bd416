package validation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// normalize maps decoded JSON values onto the declared type. Numbers are
// always normalized; strings are only converted when implicit is set.
func normalize(t Type, v any, implicit bool) any {
	switch n := v.(type) {
	case json.Number:
		switch t {
		case Int:
			if i, err := n.Int64(); err == nil {
				return i
			}
		case String, UUID:
			return v
		}
		if f, err := n.Float64(); err == nil {
			return normalize(t, f, implicit)
		}
		return v
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if t == Int && n == math.Trunc(n) && n >= -(1<<63) && n < 1<<63 {
			return int64(n)
		}
		return v
	case float32:
		return normalize(t, float64(n), implicit)
	case int:
		return normalize(t, int64(n), implicit)
	case int32:
		return normalize(t, int64(n), implicit)
	case int64:
		if t == Float {
			return float64(n)
		}
		return v
	case string:
		if !implicit {
			return v
		}
		s := strings.TrimSpace(n)
		switch t {
		case Int:
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		case Float:
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		case Bool:
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
		return v
	}
	return v
}

// coerce checks v against t and returns the typed value.
func coerce(t Type, v any) (any, bool) {
	switch t {
	case Any:
		return v, true
	case String:
		s, ok := v.(string)
		return s, ok
	case Int:
		i, ok := v.(int64)
		return i, ok
	case Float:
		f, ok := v.(float64)
		return f, ok
	case Bool:
		b, ok := v.(bool)
		return b, ok
	case UUID:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		return id.String(), true
	}
	return nil, false
}
