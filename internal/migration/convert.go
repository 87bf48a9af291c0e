package migration

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the text timestamp forms SQLite applications commonly
// write. CURRENT_TIMESTAMP produces the first.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

const (
	// Unix epoch as a Julian day number, for julianday() values.
	julianUnixEpoch = 2440587.5
	// Integers above this are taken as milliseconds.
	millisThreshold = 1e12
	// Reals below this are Julian days, anything larger Unix seconds.
	julianCutoff = 1e7
)

// convert turns a value read from SQLite into the Go type pgx encodes for
// the target column.
func convert(k kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	// Blank text in a typed column is how many SQLite apps spell NULL.
	if s, ok := v.(string); ok && k != kindText && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	switch k {
	case kindInt:
		return toInt(v)
	case kindText:
		return toText(v)
	case kindBool:
		return toBool(v)
	case kindTime:
		return toTime(v)
	case kindJSON:
		return toJSON(v)
	default:
		return nil, fmt.Errorf("unknown column kind %d", k)
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("non-integral value %v", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("cannot convert %T to text", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(x)))
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case int64:
		if x > millisThreshold || x < -millisThreshold {
			return time.UnixMilli(x).UTC(), nil
		}
		return time.Unix(x, 0).UTC(), nil
	case float64:
		if x < julianCutoff {
			return julianToTime(x), nil
		}
		whole, frac := math.Modf(x)
		return time.Unix(int64(whole), int64(math.Round(frac*1e6))*1e3).UTC(), nil
	case []byte:
		return parseTimeText(string(x))
	case string:
		return parseTimeText(x)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to timestamp", v)
	}
}

func parseTimeText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return toTime(n)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func julianToTime(day float64) time.Time {
	seconds := (day - julianUnixEpoch) * 86400
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*1e3).UTC()
}

// toJSON passes valid JSON text through and wraps anything else as a JSON
// string.
func toJSON(v any) (string, error) {
	text, err := toText(v)
	if err != nil {
		return "", err
	}
	if json.Valid([]byte(text)) {
		return text, nil
	}
	wrapped, err := json.Marshal(text)
	if err != nil {
		return "", err
	}
	return string(wrapped), nil
}
