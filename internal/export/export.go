// Package export serialises records to spreadsheet formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

const (
	// SheetName is the worksheet holding the records in XLSX exports.
	SheetName = "TeamTemp"

	// ContentTypeXLSX is the media type of XLSX exports.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// ContentTypeCSV is the media type of CSV exports.
	ContentTypeCSV = "text/csv; charset=utf-8"

	maxColumnWidth = 60
)

// Columns is the header row shared by every format.
var Columns = []string{"tribe", "team", "date", "value", "response_count", "min_value", "max_value"}

// Format identifies an export format by its file extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or xlsx)", s)
	}
}

// ContentType returns the media type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Filename returns the attachment name for an export made at now,
// e.g. teamtemp_2026-05-01.xlsx.
func Filename(now time.Time, format Format) string {
	return fmt.Sprintf("teamtemp_%s.%s", now.Format(record.DateLayout), format)
}

// Write serialises records in the given format.
func Write(w io.Writer, format Format, records []record.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a header row followed by one row per record.
// Absent statistics are written as empty fields.
func WriteCSV(w io.Writer, records []record.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(rec record.Record) []string {
	row := []string{rec.Tribe, rec.Team, rec.Date, formatFloat(rec.Value), "", "", ""}
	if rec.ResponseCount != nil {
		row[4] = strconv.Itoa(*rec.ResponseCount)
	}
	if rec.MinValue != nil {
		row[5] = formatFloat(*rec.MinValue)
	}
	if rec.MaxValue != nil {
		row[6] = formatFloat(*rec.MaxValue)
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteXLSX writes a single-sheet workbook. Column widths follow the widest
// cell in each column, capped at 60 characters.
func WriteXLSX(w io.Writer, records []record.Record) error {
	f := excelize.NewFile()
	defer f.Close() // nolint:errcheck

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	for i, width := range columnWidths(records) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func xlsxRow(rec record.Record) []any {
	row := []any{rec.Tribe, rec.Team, rec.Date, rec.Value, nil, nil, nil}
	if rec.ResponseCount != nil {
		row[4] = *rec.ResponseCount
	}
	if rec.MinValue != nil {
		row[5] = *rec.MinValue
	}
	if rec.MaxValue != nil {
		row[6] = *rec.MaxValue
	}
	return row
}

func columnWidths(records []record.Record) []float64 {
	widths := make([]float64, len(Columns))
	for i, col := range Columns {
		widths[i] = float64(len(col))
	}
	for _, rec := range records {
		for i, v := range csvRow(rec) {
			if n := float64(len(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i]+2, maxColumnWidth)
	}
	return widths
}
