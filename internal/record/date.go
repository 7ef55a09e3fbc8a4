package record

import (
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the canonical record date format.
const DateLayout = "2006-01-02"

var dateCtorPattern = regexp.MustCompile(`^\s*Date\((\d{4}),\s*(\d{1,2}),\s*(\d{1,2}).*?\)\s*$`)

// DecodeDate converts a JavaScript constructor literal such as
// "Date(2024, 0, 15)" into "2024-01-15". The month is zero-based.
// Trailing time components are ignored and out-of-range days roll over
// into the next month. A month outside 0..11 or any other shape reports
// false.
func DecodeDate(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}

	m := dateCtorPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month > 11 {
		return "", false
	}

	// Days past the end of the month roll over the way JavaScript's Date does.
	return time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC).Format(DateLayout), true
}

// ParseDate parses a canonical record date. Returns the zero time on failure.
func ParseDate(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return t
}
