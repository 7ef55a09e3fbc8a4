package record

// Record is one normalized observation for a team on a date.
type Record struct {
	Date          string   `json:"date"`
	Team          string   `json:"team"`
	Value         float64  `json:"value"`
	Tribe         string   `json:"tribe"`
	ResponseCount *int     `json:"response_count,omitempty"`
	MinValue      *float64 `json:"min_value,omitempty"`
	MaxValue      *float64 `json:"max_value,omitempty"`
}

// HasStats reports whether the annotation statistics were present.
func (r Record) HasStats() bool {
	return r.ResponseCount != nil || r.MinValue != nil || r.MaxValue != nil
}

// Key identifies the observation within a tribe.
func (r Record) Key() string {
	return r.Tribe + "|" + r.Team + "|" + r.Date
}
