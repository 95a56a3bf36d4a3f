package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestNewer_MillisecondResolution tests that comparisons truncate to
// millisecond resolution before ordering.
func TestNewer_MillisecondResolution(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"strictly newer", base.Add(time.Second), base, true},
		{"strictly older", base, base.Add(time.Second), false},
		{"equal", base, base, false},
		{"one millisecond newer", base.Add(time.Millisecond), base, true},
		{"sub-millisecond difference is a tie", base.Add(500 * time.Microsecond), base, false},
		{"sub-millisecond older is a tie", base, base.Add(999 * time.Microsecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Newer(tt.a, tt.b); got != tt.want {
				t.Errorf("Newer(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestFormatTime_RoundTrip tests that timestamps survive the string form.
func TestFormatTime_RoundTrip(t *testing.T) {
	orig := time.Date(2026, 1, 2, 3, 4, 5, 678000000, time.UTC)

	parsed, err := ParseTime(FormatTime(orig))
	if err != nil {
		t.Fatalf("ParseTime() failed: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip = %v, want %v", parsed, orig)
	}
}

// TestParseTime_WithoutFraction tests that plain RFC 3339 parses too.
func TestParseTime_WithoutFraction(t *testing.T) {
	parsed, err := ParseTime("2026-01-02T03:04:05Z")
	if err != nil {
		t.Fatalf("ParseTime() failed: %v", err)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed = %v, want %v", parsed, want)
	}
}

// TestUpdatedAt_EpochFallback tests that a missing or malformed updated_at
// falls back to the epoch, so it loses every comparison.
func TestUpdatedAt_EpochFallback(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()

	tests := []struct {
		name   string
		fields map[string]any
		want   time.Time
	}{
		{"missing", map[string]any{}, epoch},
		{"malformed", map[string]any{"updated_at": "not-a-time"}, epoch},
		{"nil value", map[string]any{"updated_at": nil}, epoch},
		{"present", map[string]any{"updated_at": "2026-01-02T03:04:05Z"},
			time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpdatedAt(tt.fields); !got.Equal(tt.want) {
				t.Errorf("UpdatedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDeletedAt_TombstoneDetection tests tombstone presence detection.
func TestDeletedAt_TombstoneDetection(t *testing.T) {
	if _, ok := DeletedAt(map[string]any{}); ok {
		t.Error("DeletedAt() reported tombstone on live fields")
	}
	if _, ok := DeletedAt(map[string]any{"deleted_at": "2026-01-02T03:04:05Z"}); !ok {
		t.Error("DeletedAt() missed tombstone")
	}
}

// TestIntField_NumericTypes tests tolerance for the numeric types JSON
// decoding and sql scanning produce.
func TestIntField_NumericTypes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
		ok    bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(7), 7, true},
		{"float64 from JSON", float64(7), 7, true},
		{"string", "7", 0, false},
		{"missing", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := map[string]any{}
			if tt.value != nil {
				f["n"] = tt.value
			}
			got, ok := IntField(f, "n")
			if got != tt.want || ok != tt.ok {
				t.Errorf("IntField() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestDecimalField_StringAmounts tests decimal extraction from string fields.
func TestDecimalField_StringAmounts(t *testing.T) {
	f := map[string]any{"amount": "123.45"}
	d, ok := DecimalField(f, "amount")
	if !ok {
		t.Fatal("DecimalField() failed on valid amount")
	}
	if !d.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("amount = %s, want 123.45", d)
	}

	if _, ok := DecimalField(map[string]any{"amount": "abc"}, "amount"); ok {
		t.Error("DecimalField() accepted a non-decimal string")
	}
}
