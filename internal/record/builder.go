package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/payload"
)

// SkipReason tags why a row or cell produced no record.
type SkipReason string

const (
	SkipEmptyRow    SkipReason = "empty_row"
	SkipMissingCell SkipReason = "missing_cell"
	SkipNullValue   SkipReason = "null_value"
	SkipNotNumeric  SkipReason = "not_numeric"
)

// averageLabel is the computed aggregate column TeamTemp appends last.
const averageLabel = "average"

// Result is the outcome of building records from one table.
type Result struct {
	Records       []Record
	Skips         map[SkipReason]int
	DateFallbacks int
}

// Skipped returns the total number of skipped rows and cells.
func (r *Result) Skipped() int {
	total := 0
	for _, n := range r.Skips {
		total += n
	}
	return total
}

func (r *Result) skip(reason SkipReason) {
	r.Skips[reason]++
}

// Builder converts DataTables into records.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a Builder that uses the wall clock for date fallbacks.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// WithClock returns a Builder that uses now for date fallbacks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build converts a table into records tagged with tribe using a default Builder.
func Build(table *payload.Table, tribe string) *Result {
	return NewBuilder().Build(table, tribe)
}

// Build produces one record per (row, team) cell holding a numeric value.
// Rows keep table order and teams keep column order within a row. A row
// whose date cell does not decode is dated with the processing day.
func (b *Builder) Build(table *payload.Table, tribe string) *Result {
	res := &Result{
		Records: make([]Record, 0),
		Skips:   make(map[SkipReason]int),
	}
	if table.Empty() {
		return res
	}

	teams := TeamLabels(table.Cols)
	today := b.now().Format(DateLayout)

	for _, row := range table.Rows {
		if len(row.C) == 0 {
			res.skip(SkipEmptyRow)
			continue
		}

		var first any
		if row.C[0] != nil {
			first = row.C[0].V
		}
		date, ok := DecodeDate(first)
		if !ok {
			date = today
			res.DateFallbacks++
		}

		for i, team := range teams {
			j := i + 1
			if j >= len(row.C) || row.C[j] == nil {
				res.skip(SkipMissingCell)
				continue
			}

			cell := row.C[j]
			if cell.V == nil {
				res.skip(SkipNullValue)
				continue
			}

			value, ok := toFloat(cell.V)
			if !ok {
				res.skip(SkipNotNumeric)
				continue
			}

			rec := Record{
				Date:  date,
				Team:  team,
				Value: value,
				Tribe: tribe,
			}
			if stats := ParseAnnotation(cell.Format()); stats.Present() {
				rec.ResponseCount = stats.ResponseCount
				rec.MinValue = stats.Min
				rec.MaxValue = stats.Max
			}
			res.Records = append(res.Records, rec)
		}
	}

	return res
}

// TeamLabels derives team names from every column after the date column,
// preferring the label, then the id, then "col<index>". A trailing
// "Average" column is dropped.
func TeamLabels(cols []payload.Column) []string {
	if len(cols) < 2 {
		return nil
	}

	labels := make([]string, 0, len(cols)-1)
	for i := 1; i < len(cols); i++ {
		c := cols[i]
		switch {
		case c.Label != "":
			labels = append(labels, c.Label)
		case c.ID != "":
			labels = append(labels, c.ID)
		default:
			labels = append(labels, fmt.Sprintf("col%d", i))
		}
	}

	last := labels[len(labels)-1]
	if strings.EqualFold(strings.TrimSpace(last), averageLabel) {
		labels = labels[:len(labels)-1]
	}
	return labels
}

// toFloat coerces a decoded cell value to a finite float64.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
