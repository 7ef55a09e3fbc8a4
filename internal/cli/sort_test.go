package cli

import (
	"testing"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

func teams(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Tribe + "/" + r.Team + "@" + r.Date
	}
	return out
}

func TestSortRecords(t *testing.T) {
	input := []record.Record{
		{Tribe: "Platform", Team: "beta", Date: "2024-02-01"},
		{Tribe: "Core", Team: "Alpha", Date: "2024-03-01"},
		{Tribe: "Core", Team: "alpha", Date: "2024-01-01"},
		{Tribe: "Core", Team: "Gamma", Date: "2024-02-01"},
	}

	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{
			name:  "none keeps source order",
			order: SortNone,
			want:  []string{"Platform/beta@2024-02-01", "Core/Alpha@2024-03-01", "Core/alpha@2024-01-01", "Core/Gamma@2024-02-01"},
		},
		{
			name:  "by date",
			order: SortByDate,
			want:  []string{"Core/alpha@2024-01-01", "Core/Gamma@2024-02-01", "Platform/beta@2024-02-01", "Core/Alpha@2024-03-01"},
		},
		{
			name:  "by team",
			order: SortByTeam,
			want:  []string{"Core/alpha@2024-01-01", "Core/Alpha@2024-03-01", "Platform/beta@2024-02-01", "Core/Gamma@2024-02-01"},
		},
		{
			name:  "by tribe",
			order: SortByTribe,
			want:  []string{"Core/alpha@2024-01-01", "Core/Alpha@2024-03-01", "Core/Gamma@2024-02-01", "Platform/beta@2024-02-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := teams(sortRecords(input, tt.order))
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("sortRecords(%q) = %v, want %v", tt.order, got, tt.want)
				}
			}
		})
	}
}

func TestSortRecords_LeavesInputUntouched(t *testing.T) {
	input := []record.Record{
		{Team: "b", Date: "2024-02-01"},
		{Team: "a", Date: "2024-01-01"},
	}

	sorted := sortRecords(input, SortByTeam)

	if input[0].Team != "b" || input[1].Team != "a" {
		t.Errorf("input reordered to %v", teams(input))
	}
	if sorted[0].Team != "a" {
		t.Errorf("sortRecords() = %v, want team a first", teams(sorted))
	}
}

func TestSortOrderValid(t *testing.T) {
	for _, o := range []SortOrder{SortNone, SortByDate, SortByTeam, SortByTribe} {
		if !o.Valid() {
			t.Errorf("%q should be valid", o)
		}
	}
	if SortOrder("state").Valid() {
		t.Error("state should not be valid")
	}
}

func TestCompareByDate_InvalidLast(t *testing.T) {
	valid := record.Record{Date: "2024-01-01"}
	invalid := record.Record{Date: "someday"}

	if !compareByDate(valid, invalid) {
		t.Error("valid date should sort before invalid date")
	}
	if compareByDate(invalid, valid) {
		t.Error("invalid date should not sort before valid date")
	}
}
