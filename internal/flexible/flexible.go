// Package flexible normalizes document values whose wire type drifted across
// schema versions (numbers stored as strings, timestamps stored as strings or as
// native store timestamps) into a single Go type. None of the functions fail:
// an unconvertible value yields the zero value and ok == false.
package flexible

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the canonical string form of a creation timestamp.
const DateLayout = "2006-01-02T15:04:05Z"

// Number accepts native numerics as-is and parses strings after replacing a
// decimal comma with a decimal point.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return parseNumber(string(n))
	case primitive.Decimal128:
		return parseNumber(n.String())
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// NumberPtr is Number returning nil when the value is not numeric.
func NumberPtr(v any) *float64 {
	n, ok := Number(v)
	if !ok {
		return nil
	}
	return &n
}

// Int is Number restricted to integral values.
func Int(v any) (int, bool) {
	n, ok := Number(v)
	if !ok {
		return 0, false
	}
	r := math.Round(n)
	if math.Abs(n-r) > 1e-9 || math.Abs(r) > 1<<53 {
		return 0, false
	}
	return int(r), true
}

func IntPtr(v any) *int {
	n, ok := Int(v)
	if !ok {
		return nil
	}
	return &n
}

// String accepts strings as-is and stringifies numerics. Used for lat/long
// style fields that older documents stored as numbers.
func String(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return string(s), true
	case bool, nil:
		return "", false
	}
	if n, ok := Number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

func StringPtr(v any) *string {
	s, ok := String(v)
	if !ok {
		return nil
	}
	return &s
}

// Bool accepts booleans, the usual textual spellings (including Portuguese
// sim/não) and numeric 0/1.
func Bool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "sim", "s", "yes", "1":
			return true, true
		case "false", "nao", "não", "n", "no", "0":
			return false, true
		}
		return false, false
	}
	if n, ok := Number(v); ok {
		switch n {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}

func BoolPtr(v any) *bool {
	b, ok := Bool(v)
	if !ok {
		return nil
	}
	return &b
}

// Date returns pre-formatted strings unchanged and formats native timestamps
// with DateLayout in UTC. Anything else yields "".
func Date(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case primitive.DateTime:
		return FormatTime(d.Time())
	case primitive.Timestamp:
		return FormatTime(time.Unix(int64(d.T), 0))
	case time.Time:
		return FormatTime(d)
	case *time.Time:
		if d == nil {
			return ""
		}
		return FormatTime(*d)
	case map[string]any:
		// exported timestamps: {"_seconds": n, "_nanoseconds": n}
		sec, ok := Number(first(d, "_seconds", "seconds"))
		if !ok {
			return ""
		}
		nanos, _ := Number(first(d, "_nanoseconds", "nanos", "nanoseconds"))
		return FormatTime(time.Unix(int64(sec), int64(nanos)))
	default:
		return ""
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

var parseLayouts = []string{
	time.RFC3339Nano,
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseDate interprets a normalized date string for ordering purposes.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(n)
}

func finite(n float64) (float64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}
