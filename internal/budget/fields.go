package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rows travel between the local store and the remote collection store as
// flat field maps keyed by column name. Timestamps are RFC 3339 strings,
// money amounts are decimal strings, small integers survive a JSON round
// trip as float64. The helpers below normalize all of that.

// FormatTime renders a timestamp the way it is stored locally and
// remotely: RFC 3339 in UTC with sub-second precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a timestamp produced by FormatTime. Plain RFC 3339
// without fractional seconds is accepted too.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Newer reports whether a is strictly newer than b at millisecond
// resolution. Equal-to-the-millisecond timestamps are not "newer", which
// makes ties resolve in favor of the existing (local) row.
func Newer(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).After(b.Truncate(time.Millisecond))
}

// StringField extracts a string field.
func StringField(f map[string]any, key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntField extracts an integer field, tolerating the numeric types JSON
// decoding and sql scanning produce.
func IntField(f map[string]any, key string) (int, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// TimeField extracts and parses a timestamp field.
func TimeField(f map[string]any, key string) (time.Time, bool) {
	s, ok := StringField(f, key)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DecimalField extracts a decimal amount stored as a string.
func DecimalField(f map[string]any, key string) (decimal.Decimal, bool) {
	s, ok := StringField(f, key)
	if !ok || s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// UpdatedAt returns the updated_at timestamp of a field map, or the epoch
// when the field is missing or malformed. Missing remote timestamps must
// lose every last-write-wins comparison, and the epoch guarantees that.
func UpdatedAt(f map[string]any) time.Time {
	if t, ok := TimeField(f, "updated_at"); ok {
		return t
	}
	return time.Unix(0, 0).UTC()
}

// DeletedAt returns the deleted_at timestamp of a field map, if present.
// Presence marks the row as a tombstone.
func DeletedAt(f map[string]any) (time.Time, bool) {
	return TimeField(f, "deleted_at")
}
