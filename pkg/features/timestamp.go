package features

import (
	"math"
	"strings"
	"time"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp converts a record value to unix seconds (UTC).
// Strings without a zone are read as UTC; numbers are taken as unix seconds.
func ParseTimestamp(v any) (int64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case time.Time:
		if val.IsZero() {
			return 0, false
		}
		return val.Unix(), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Unix(), true
			}
		}
		return 0, false
	}

	f, ok := logs.ParseFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
