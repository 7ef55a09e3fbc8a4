package record

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/teamtemp/internal/payload"
)

func fixedClock() time.Time {
	return time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func fPtr(f float64) *float64 { return &f }

func cell(v any) *payload.Cell {
	return &payload.Cell{V: v}
}

func TestBuild(t *testing.T) {
	table := &payload.Table{
		Cols: []payload.Column{
			{ID: "date", Label: "Date", Type: "date"},
			{ID: "a", Label: "Alpha"},
			{ID: "b", Label: "Beta"},
		},
		Rows: []payload.Row{
			{C: []*payload.Cell{cell("Date(2024, 0, 15)"), {V: 7.0, F: strPtr("(Min: 6.00, Max: 9.00, 6 Responses)")}, cell(5.5)}},
			{C: []*payload.Cell{cell("Date(2024, 0, 22)"), cell(8.0), cell(6.0)}},
		},
	}

	res := NewBuilder().WithClock(fixedClock).Build(table, "Payments")

	want := []Record{
		{Date: "2024-01-15", Team: "Alpha", Value: 7, Tribe: "Payments", ResponseCount: intPtr(6), MinValue: fPtr(6), MaxValue: fPtr(9)},
		{Date: "2024-01-15", Team: "Beta", Value: 5.5, Tribe: "Payments"},
		{Date: "2024-01-22", Team: "Alpha", Value: 8, Tribe: "Payments"},
		{Date: "2024-01-22", Team: "Beta", Value: 6, Tribe: "Payments"},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("Build() records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, res.Skipped())
	assert.Equal(t, 0, res.DateFallbacks)
}

func TestBuild_EmptyTables(t *testing.T) {
	tests := []struct {
		name  string
		table *payload.Table
	}{
		{"nil table", nil},
		{"no columns", &payload.Table{Rows: []payload.Row{{C: []*payload.Cell{cell("Date(2024, 0, 1)")}}}}},
		{"no rows", &payload.Table{Cols: []payload.Column{{ID: "d"}, {ID: "a"}}}},
		{"only date column", &payload.Table{
			Cols: []payload.Column{{ID: "d"}},
			Rows: []payload.Row{{C: []*payload.Cell{cell("Date(2024, 0, 1)")}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Build(tt.table, "tribe")
			require.NotNil(t, res)
			assert.Empty(t, res.Records)
		})
	}
}

func TestBuild_DropsAverageColumn(t *testing.T) {
	for _, label := range []string{"Average", "average", "  AVERAGE ", "AvErAgE"} {
		t.Run(label, func(t *testing.T) {
			table := &payload.Table{
				Cols: []payload.Column{{ID: "d"}, {Label: "Alpha"}, {Label: label}},
				Rows: []payload.Row{{C: []*payload.Cell{cell("Date(2024, 0, 1)"), cell(7.0), cell(7.0)}}},
			}

			res := Build(table, "")
			require.Len(t, res.Records, 1)
			for _, r := range res.Records {
				assert.NotEqual(t, "average", strings.ToLower(strings.TrimSpace(r.Team)))
			}
		})
	}
}

func TestBuild_AverageOnlyDroppedWhenLast(t *testing.T) {
	table := &payload.Table{
		Cols: []payload.Column{{ID: "d"}, {Label: "Average"}, {Label: "Alpha"}},
		Rows: []payload.Row{{C: []*payload.Cell{cell("Date(2024, 0, 1)"), cell(1.0), cell(2.0)}}},
	}

	res := Build(table, "")
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Average", res.Records[0].Team)
}

func TestBuild_SkipReasons(t *testing.T) {
	table := &payload.Table{
		Cols: []payload.Column{{ID: "d"}, {Label: "A"}, {Label: "B"}, {Label: "C"}},
		Rows: []payload.Row{
			{C: nil},
			{C: []*payload.Cell{cell("Date(2024, 0, 1)"), cell(1.0)}},
			{C: []*payload.Cell{cell("Date(2024, 0, 2)"), nil, cell(nil), cell("n/a")}},
			{C: []*payload.Cell{cell("Date(2024, 0, 3)"), cell(" 4.25 "), cell(true), cell(map[string]any{"x": 1})}},
		},
	}

	res := Build(table, "")

	assert.Equal(t, 1, res.Skips[SkipEmptyRow])
	assert.Equal(t, 3, res.Skips[SkipMissingCell], "short row plus explicit null cell")
	assert.Equal(t, 1, res.Skips[SkipNullValue])
	assert.Equal(t, 2, res.Skips[SkipNotNumeric])
	assert.Equal(t, 7, res.Skipped())

	require.Len(t, res.Records, 3)
	assert.Equal(t, Record{Date: "2024-01-01", Team: "A", Value: 1}, res.Records[0])
	assert.Equal(t, Record{Date: "2024-01-03", Team: "A", Value: 4.25}, res.Records[1])
	assert.Equal(t, Record{Date: "2024-01-03", Team: "B", Value: 1}, res.Records[2])
}

func TestBuild_DateFallback(t *testing.T) {
	table := &payload.Table{
		Cols: []payload.Column{{ID: "d"}, {Label: "A"}},
		Rows: []payload.Row{
			{C: []*payload.Cell{cell("last week"), cell(3.0)}},
			{C: []*payload.Cell{nil, cell(4.0)}},
		},
	}

	res := NewBuilder().WithClock(fixedClock).Build(table, "")

	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.DateFallbacks)
	for _, r := range res.Records {
		assert.Equal(t, "2026-10-18", r.Date)
	}
}

func TestBuild_OverflowDateKeepsHistoricalDay(t *testing.T) {
	table := &payload.Table{
		Cols: []payload.Column{{ID: "d"}, {Label: "A"}},
		Rows: []payload.Row{{C: []*payload.Cell{cell("Date(2026, 1, 30)"), cell(3.0)}}},
	}

	res := NewBuilder().WithClock(fixedClock).Build(table, "")

	require.Len(t, res.Records, 1)
	assert.Equal(t, "2026-03-02", res.Records[0].Date)
	assert.Zero(t, res.DateFallbacks)
}

func TestTeamLabels(t *testing.T) {
	tests := []struct {
		name string
		cols []payload.Column
		want []string
	}{
		{"none", nil, nil},
		{"date only", []payload.Column{{ID: "d"}}, nil},
		{
			name: "label then id then placeholder",
			cols: []payload.Column{{ID: "d"}, {ID: "x", Label: "Xray"}, {ID: "y"}, {}},
			want: []string{"Xray", "y", "col3"},
		},
		{
			name: "average via id",
			cols: []payload.Column{{ID: "d"}, {Label: "A"}, {ID: "average"}},
			want: []string{"A"},
		},
		{
			name: "only average",
			cols: []payload.Column{{ID: "d"}, {Label: "Average"}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TeamLabels(tt.cols)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_RoundTripFromHTML(t *testing.T) {
	html := `<html><head><script type="text/javascript">
google.load('visualization', '1', {packages: ['corechart']});
var historical_data = new google.visualization.DataTable({cols:[{id:'date',label:'Date',type:'date'},{id:'t1',label:'Team One',type:'number'},{id:'t2',label:'Team Two',type:'number'},{id:'avg',label:'Average',type:'number'}],
rows:[{c:[{v:'Date(2024, 0, 15)'},{v:7.5,f:'(Min: 6.00, Max: 9.00, 6 Responses)'},{v:6},{v:6.75}]},
{c:[{v:'Date(2024, 0, 22)'},{v:8},{v:5.5},{v:6.75}]}]});
</script></head><body><div id="chart"></div></body></html>`

	table, err := payload.Locate(html)
	require.NoError(t, err)

	res := Build(table, "Core")
	require.Len(t, res.Records, 4)

	annotated := res.Records[0]
	assert.Equal(t, "Team One", annotated.Team)
	assert.Equal(t, "2024-01-15", annotated.Date)
	require.True(t, annotated.HasStats())
	assert.Equal(t, 6, *annotated.ResponseCount)
	assert.Equal(t, 6.0, *annotated.MinValue)
	assert.Equal(t, 9.0, *annotated.MaxValue)

	for _, r := range res.Records[1:] {
		assert.False(t, r.HasStats(), "record %s should have no stats", r.Key())
		assert.Equal(t, "Core", r.Tribe)
	}
}

func TestBuild_NonObjectCellSkipped(t *testing.T) {
	html := `var historical_data = new google.visualization.DataTable({"cols":[{"id":"d"},{"label":"A"},{"label":"B"}],` +
		`"rows":[{"c":[{"v":"Date(2024, 0, 15)"},1,{"v":5}]}]});`

	table, err := payload.Locate(html)
	require.NoError(t, err)

	res := Build(table, "")
	require.Len(t, res.Records, 1)
	assert.Equal(t, Record{Date: "2024-01-15", Team: "B", Value: 5}, res.Records[0])
	assert.Equal(t, 1, res.Skips[SkipMissingCell])
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{7.0, 7, true},
		{float32(1.5), 1.5, true},
		{3, 3, true},
		{int64(4), 4, true},
		{"2.5", 2.5, true},
		{" 9 ", 9, true},
		{false, 0, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{[]any{1.0}, 0, false},
	}

	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("toFloat(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
