package clip

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTimestamp is returned for input that is not ss, mm:ss or hh:mm:ss.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// maxSeconds bounds every parsed value, component or total.
const maxSeconds = math.MaxInt32

// ParseTimestamp converts "ss", "mm:ss" or "hh:mm:ss" into whole seconds.
// Every component must be a non-negative integer.
func ParseTimestamp(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidTimestamp
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has %d components", ErrInvalidTimestamp, s, len(parts))
	}

	total := 0
	for _, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		if total > (maxSeconds-n)/60 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidTimestamp, s)
		}
		total = total*60 + n
	}
	return total, nil
}

// ParseSeconds accepts a value that is already a number of seconds or a
// timestamp string.
func ParseSeconds(v any) (int, error) {
	switch t := v.(type) {
	case int:
		if t < 0 || t > maxSeconds {
			return 0, ErrInvalidTimestamp
		}
		return t, nil
	case int64:
		if t < 0 || t > maxSeconds {
			return 0, ErrInvalidTimestamp
		}
		return int(t), nil
	case float64:
		if t < 0 || t != math.Trunc(t) || t > maxSeconds {
			return 0, ErrInvalidTimestamp
		}
		return int(t), nil
	case string:
		return ParseTimestamp(t)
	default:
		return 0, ErrInvalidTimestamp
	}
}

// FormatTimestamp renders seconds the way ParseTimestamp reads them back.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func parseComponent(part string) (int, error) {
	if part == "" {
		return 0, ErrInvalidTimestamp
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, ErrInvalidTimestamp
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, err
	}
	if n > maxSeconds {
		return 0, ErrInvalidTimestamp
	}
	return n, nil
}
