package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pfrederiksen/teamtemp/internal/aggregate"
	"github.com/pfrederiksen/teamtemp/internal/record"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// OutputResult contains data to be output
type OutputResult struct {
	ScrapedAt   time.Time               `json:"scraped_at"`
	Records     []record.Record         `json:"records"`
	RecordCount int                     `json:"record_count"`
	Errors      []aggregate.SourceError `json:"errors"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// writeText outputs results as a table followed by any source failures
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.RecordCount == 0 {
		fmt.Fprintln(w, "No records found.")
	} else {
		t := newTable(w)
		header := table.Row{"Tribe", "Team", "Date", "Value"}
		if verbose {
			header = append(header, "Responses", "Min", "Max")
		}
		t.AppendHeader(header)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
			{Number: 7, Align: text.AlignRight},
		})

		for _, rec := range result.Records {
			row := table.Row{rec.Tribe, rec.Team, rec.Date, formatValue(rec.Value)}
			if verbose {
				row = append(row, optionalInt(rec.ResponseCount), optionalFloat(rec.MinValue), optionalFloat(rec.MaxValue))
			}
			t.AppendRow(row)
		}
		t.Render()
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\n%d source(s) failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.URL, e.Message)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d records\n", result.RecordCount)
	return nil
}

// WriteSources writes the registry listing in the specified format
func WriteSources(w io.Writer, sources []source.Source, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, map[string]any{"sources": sources})
	case FormatText:
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources registered.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Tribe", "URL", "Added"})
	for _, src := range sources {
		t.AppendRow(table.Row{src.ID, src.Tribe, src.URL, src.CreatedAt.Format(time.RFC3339)})
	}
	t.Render()
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func optionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatValue(*f)
}
