package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

// rangeSeparator splits the two ends of a date range.
const rangeSeparator = ".."

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "2024-01-01..2024-03-31" - Both ends, inclusive
//   - "2024-01-01.."           - From a date onwards
//   - "..2024-03-31"           - Up to a date
//   - "2024-01-15"             - A single day
//
// Returns (dateFrom, dateTo, error). An open end is nil. Times are in UTC.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if !strings.Contains(input, rangeSeparator) {
		day, err := parseDay(input)
		if err != nil {
			return nil, nil, err
		}
		return &day, &day, nil
	}

	fromText, toText, _ := strings.Cut(input, rangeSeparator)
	fromText, toText = strings.TrimSpace(fromText), strings.TrimSpace(toText)
	if fromText == "" && toText == "" {
		return nil, nil, fmt.Errorf("date range needs at least one date")
	}

	var from, to *time.Time
	if fromText != "" {
		d, err := parseDay(fromText)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if toText != "" {
		d, err := parseDay(toText)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}

	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}
	return from, to, nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(record.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
