package record

import (
	"regexp"
	"strconv"
)

var annotationPattern = regexp.MustCompile(
	`(?i)Min:\s*(-?\d+(?:\.\d+)?)\s*,\s*Max:\s*(-?\d+(?:\.\d+)?)\s*,\s*(\d+)\s*Responses?`,
)

// Stats holds the auxiliary statistics TeamTemp prints next to a value.
// All fields are nil when the annotation is absent.
type Stats struct {
	ResponseCount *int
	Min           *float64
	Max           *float64
}

// Present reports whether the annotation matched.
func (s Stats) Present() bool {
	return s.ResponseCount != nil
}

// ParseAnnotation extracts min, max and response count from a display string
// like "(Min: 6.00, Max: 9.00, 6 Responses)". A string without the
// annotation returns empty Stats; older pages never carry it.
func ParseAnnotation(text string) Stats {
	if text == "" {
		return Stats{}
	}

	m := annotationPattern.FindStringSubmatch(text)
	if m == nil {
		return Stats{}
	}

	minV, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Stats{}
	}
	maxV, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Stats{}
	}
	count, err := strconv.Atoi(m[3])
	if err != nil {
		return Stats{}
	}

	return Stats{ResponseCount: &count, Min: &minV, Max: &maxV}
}
