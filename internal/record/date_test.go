package record

import (
	"fmt"
	"testing"
	"time"
)

func TestDecodeDate(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"january is month zero", "Date(2024, 0, 15)", "2024-01-15", true},
		{"december", "Date(2023, 11, 31)", "2023-12-31", true},
		{"no spaces", "Date(2024,5,1)", "2024-06-01", true},
		{"surrounding whitespace", "  Date(2024, 1, 29)  ", "2024-02-29", true},
		{"time components ignored", "Date(2024, 2, 10, 14, 30, 0)", "2024-03-10", true},
		{"month out of range", "Date(2024, 12, 1)", "", false},
		{"day overflow rolls over", "Date(2026, 1, 30)", "2026-03-02", true},
		{"day zero is last of previous month", "Date(2024, 2, 0)", "2024-02-29", true},
		{"day overflow past year end", "Date(2023, 11, 32)", "2024-01-01", true},
		{"two digit year", "Date(24, 0, 1)", "", false},
		{"new prefix", "new Date(2024, 0, 1)", "", false},
		{"iso string", "2024-01-15", "", false},
		{"empty string", "", "", false},
		{"number", 20240115.0, "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("DecodeDate(%#v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("DecodeDate(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeDate_AllMonths(t *testing.T) {
	for m := 0; m <= 11; m++ {
		input := fmt.Sprintf("Date(2025, %d, 1)", m)
		want := fmt.Sprintf("2025-%02d-01", m+1)

		got, ok := DecodeDate(input)
		if !ok || got != want {
			t.Errorf("DecodeDate(%q) = %q, %v; want %q, true", input, got, ok, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got := ParseDate("2024-03-10")
	want := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}

	if !ParseDate("not a date").IsZero() {
		t.Error("ParseDate(invalid) should return zero time")
	}
}
