package domain

import (
	"math"
	"time"
)

// Missing returns the sentinel used for values that have not been observed.
// A missing value means "not yet observed", never "observed as zero".
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Frequency is the nominal reporting cadence of a series. It is taken from
// upstream metadata, never inferred from the spacing of observations.
type Frequency string

const (
	FrequencyUnknown   Frequency = "unknown"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// FrequencyFromLabel maps an upstream frequency label (either the long form
// such as "Monthly" or the short code such as "M") onto a Frequency.
func FrequencyFromLabel(label, short string) Frequency {
	switch short {
	case "M":
		return FrequencyMonthly
	case "Q":
		return FrequencyQuarterly
	case "A":
		return FrequencyAnnual
	}
	switch label {
	case "Monthly", "monthly":
		return FrequencyMonthly
	case "Quarterly", "quarterly":
		return FrequencyQuarterly
	case "Annual", "annual", "Yearly", "yearly":
		return FrequencyAnnual
	}
	return FrequencyUnknown
}

// Observation is a single dated value in a series. A missing Value is the
// NaN sentinel, see Missing.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// SeriesMeta is the descriptive metadata record attached to a series as
// reported by its upstream source. Coverage fields are pointers so that an
// unfetchable series serializes them as null in the provenance sidecar.
type SeriesMeta struct {
	SeriesID           string  `json:"series_id"`
	Frequency          string  `json:"frequency,omitempty"`
	FrequencyShort     string  `json:"frequency_short,omitempty"`
	ObservationStart   *string `json:"observation_start"`
	ObservationEnd     *string `json:"observation_end"`
	Title              string  `json:"title,omitempty"`
	Units              string  `json:"units,omitempty"`
	SeasonalAdjustment string  `json:"seasonal_adjustment,omitempty"`
	Notes              string  `json:"notes,omitempty"`
}

// Series is one normalized date-indexed indicator. Observations are sorted
// ascending by date with at most one observation per date.
type Series struct {
	ID            string        `json:"id"`
	Column        string        `json:"column"`
	Frequency     Frequency     `json:"frequency"`
	CoverageStart *time.Time    `json:"coverage_start"`
	CoverageEnd   *time.Time    `json:"coverage_end"`
	Meta          SeriesMeta    `json:"meta"`
	Observations  []Observation `json:"observations"`
}

// Empty reports whether the series carries no observations at all.
func (s Series) Empty() bool {
	return len(s.Observations) == 0
}

// RawObservation is one (date, value) pair exactly as delivered by a fetch
// adapter, before any parsing.
type RawObservation struct {
	DateToken  string
	ValueToken string
}

// RawSeries is the contract between a fetch adapter and the normalizer: the
// unparsed observation tokens plus the upstream metadata record. An
// unfetchable series has zero observations and null coverage fields.
type RawSeries struct {
	ID           string
	Column       string
	Meta         SeriesMeta
	Observations []RawObservation
}
