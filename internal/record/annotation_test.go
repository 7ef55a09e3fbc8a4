package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
		wantMin   float64
		wantMax   float64
		present   bool
	}{
		{"plural", "(Min: 6.00, Max: 9.00, 6 Responses)", 6, 6, 9, true},
		{"singular", "(Min: 7, Max: 7, 1 Response)", 1, 7, 7, true},
		{"lower case", "7.5 min: 5.5, max: 10.0, 12 responses", 12, 5.5, 10, true},
		{"embedded in text", "Average 7.25 (Min: 3.25, Max: 9.75, 4 Responses) this week", 4, 3.25, 9.75, true},
		{"negative min", "Min: -1.5, Max: 2, 3 Responses", 3, -1.5, 2, true},
		{"empty", "", 0, 0, 0, false},
		{"plain number", "7.50", 0, 0, 0, false},
		{"missing count", "(Min: 6.00, Max: 9.00)", 0, 0, 0, false},
		{"fractional count", "(Min: 6, Max: 9, 6.5 Responses)", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnnotation(tt.text)
			assert.Equal(t, tt.present, got.Present())

			if !tt.present {
				assert.Nil(t, got.ResponseCount)
				assert.Nil(t, got.Min)
				assert.Nil(t, got.Max)
				return
			}

			require.NotNil(t, got.ResponseCount)
			require.NotNil(t, got.Min)
			require.NotNil(t, got.Max)
			assert.Equal(t, tt.wantCount, *got.ResponseCount)
			assert.InDelta(t, tt.wantMin, *got.Min, 1e-9)
			assert.InDelta(t, tt.wantMax, *got.Max, 1e-9)
		})
	}
}
