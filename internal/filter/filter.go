// Package filter narrows record sets by tribe, team and date range.
//
// Filters are built from HTTP query parameters or CLI flags:
//
//	f, err := filter.New(filter.Criteria{
//	    Tribes: []string{"Core"},
//	    Teams:  []string{"squad"},
//	    Range:  "2024-01-01..2024-03-31",
//	})
//	if err != nil {
//	    return err
//	}
//	records = f.Apply(records)
//
// An empty filter matches every record.
package filter

import (
	"strings"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

// Criteria is the unparsed form of a Filter.
type Criteria struct {
	Tribes []string
	Teams  []string
	Range  string
}

// Filter represents record filtering criteria
type Filter struct {
	// Date range filtering, both ends inclusive
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Tribe filtering (case-insensitive exact match)
	Tribes []string `json:"tribes,omitempty"`

	// Team filtering (case-insensitive substring match)
	Teams []string `json:"teams,omitempty"`
}

// New builds a Filter from c. Blank tribe and team entries are ignored.
func New(c Criteria) (*Filter, error) {
	f := &Filter{
		Tribes: normalize(c.Tribes, true),
		Teams:  normalize(c.Teams, false),
	}

	if strings.TrimSpace(c.Range) != "" {
		from, to, err := ParseDateRange(c.Range)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}

// normalize lowercases and trims values. Blank values are dropped unless
// keepBlank is set, which lets an explicit empty tribe select untagged records.
func normalize(values []string, keepBlank bool) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" && !keepBlank {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Tribes) == 0 &&
		len(f.Teams) == 0
}

// Matches checks if a record matches all active filter criteria.
// Records with an unparseable date never match a date range.
func (f *Filter) Matches(rec record.Record) bool {
	if f.IsEmpty() {
		return true
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date := record.ParseDate(rec.Date)
		if date.IsZero() {
			return false
		}
		if f.DateFrom != nil && date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && date.After(*f.DateTo) {
			return false
		}
	}

	if len(f.Tribes) > 0 {
		tribe := strings.ToLower(strings.TrimSpace(rec.Tribe))
		matched := false
		for _, t := range f.Tribes {
			if tribe == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Teams) > 0 {
		team := strings.ToLower(rec.Team)
		matched := false
		for _, t := range f.Teams {
			if strings.Contains(team, t) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the records that match the filter. The input is not modified.
func (f *Filter) Apply(records []record.Record) []record.Record {
	if f == nil || f.IsEmpty() {
		return records
	}

	filtered := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// String returns a human-readable description of the filter.
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "no filter"
	}

	var parts []string
	if f.DateFrom != nil || f.DateTo != nil {
		from, to := "…", "…"
		if f.DateFrom != nil {
			from = f.DateFrom.Format(record.DateLayout)
		}
		if f.DateTo != nil {
			to = f.DateTo.Format(record.DateLayout)
		}
		parts = append(parts, "dates "+from+" to "+to)
	}
	if len(f.Tribes) > 0 {
		parts = append(parts, "tribe in ["+strings.Join(f.Tribes, ", ")+"]")
	}
	if len(f.Teams) > 0 {
		parts = append(parts, "team matches ["+strings.Join(f.Teams, ", ")+"]")
	}
	return strings.Join(parts, ", ")
}
