package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

func intPtr(n int) *int          { return &n }
func floatPtr(f float64) *float64 { return &f }

func sampleRecords() []record.Record {
	return []record.Record{
		{
			Date: "2024-01-15", Team: "Alpha", Value: 7.5, Tribe: "Core",
			ResponseCount: intPtr(4), MinValue: floatPtr(6), MaxValue: floatPtr(9),
		},
		{Date: "2024-01-15", Team: "Beta, Inc", Value: 8, Tribe: "Core"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		Columns,
		{"Core", "Alpha", "2024-01-15", "7.5", "4", "6", "9"},
		{"Core", "Beta, Inc", "2024-01-15", "8", "", "", ""},
	}
	assert.Equal(t, want, rows)
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"Core", "Alpha", "2024-01-15", "7.5", "4", "6", "9"}, rows[1])
	assert.Equal(t, []string{"Core", "Beta, Inc", "2024-01-15", "8"}, rows[2])

	width, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Beta, Inc")+2), width)
}

func TestColumnWidthsCapped(t *testing.T) {
	records := []record.Record{{Team: strings.Repeat("x", 200)}}
	widths := columnWidths(records)
	assert.Equal(t, float64(maxColumnWidth), widths[1])
	assert.Equal(t, float64(len("tribe")+2), widths[0])
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "teamtemp_2026-05-01.xlsx", Filename(now, FormatXLSX))
	assert.Equal(t, "teamtemp_2026-05-01.csv", Filename(now, FormatCSV))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, ContentTypeXLSX, f.ContentType())

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCSV, f.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))
	assert.True(t, strings.HasPrefix(buf.String(), "tribe,team"))

	assert.Error(t, Write(&buf, Format("pdf"), nil))
}
