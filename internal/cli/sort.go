package cli

import (
	"slices"
	"sort"
	"strings"

	"github.com/pfrederiksen/teamtemp/internal/record"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortByDate  SortOrder = "date"
	SortByTeam  SortOrder = "team"
	SortByTribe SortOrder = "tribe"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortNone, SortByDate, SortByTeam, SortByTribe:
		return true
	}
	return false
}

// sortRecords returns a sorted copy of records; the input is not modified.
// SortNone keeps source order.
func sortRecords(in []record.Record, order SortOrder) []record.Record {
	records := slices.Clone(in)
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Date != records[j].Date {
				return compareByDate(records[i], records[j])
			}
			return compareByTribeTeam(records[i], records[j])
		})
	case SortByTeam:
		sort.SliceStable(records, func(i, j int) bool {
			ti, tj := strings.ToLower(records[i].Team), strings.ToLower(records[j].Team)
			if ti != tj {
				return ti < tj
			}
			// If teams are equal, sort by date
			return compareByDate(records[i], records[j])
		})
	case SortByTribe:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Tribe != records[j].Tribe || records[i].Team != records[j].Team {
				return compareByTribeTeam(records[i], records[j])
			}
			return compareByDate(records[i], records[j])
		})
	}
	return records
}

// compareByDate compares two records by their date
// Returns true if record i should come before record j
func compareByDate(i, j record.Record) bool {
	dateI := record.ParseDate(i.Date)
	dateJ := record.ParseDate(j.Date)

	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	return false
}

func compareByTribeTeam(i, j record.Record) bool {
	ti, tj := strings.ToLower(i.Tribe), strings.ToLower(j.Tribe)
	if ti != tj {
		return ti < tj
	}
	return strings.ToLower(i.Team) < strings.ToLower(j.Team)
}
