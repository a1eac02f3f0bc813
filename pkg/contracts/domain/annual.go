package domain

import "sort"

// AnnualAggregate is one per-year summary statistic derived from
// individual-level survey records.
type AnnualAggregate struct {
	Year      int     `json:"year"`
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
}

// AnnualTable holds annual aggregates keyed by year, one value column per
// indicator. Indicator order is the order the indicators were added and is
// preserved through the merge.
type AnnualTable struct {
	Indicators []string
	rows       map[int]map[string]float64
}

// NewAnnualTable returns an empty annual table.
func NewAnnualTable() *AnnualTable {
	return &AnnualTable{rows: make(map[int]map[string]float64)}
}

// AddIndicator registers an indicator column if it is not already present.
func (t *AnnualTable) AddIndicator(name string) {
	for _, existing := range t.Indicators {
		if existing == name {
			return
		}
	}
	t.Indicators = append(t.Indicators, name)
}

// Set records the aggregate value for an indicator in a given year. The
// indicator is registered on first use.
func (t *AnnualTable) Set(year int, indicator string, value float64) {
	t.AddIndicator(indicator)
	row, ok := t.rows[year]
	if !ok {
		row = make(map[string]float64)
		t.rows[year] = row
	}
	row[indicator] = value
}

// Value returns the aggregate for (year, indicator). The second return is
// false when the year is absent or the indicator has no value for that year.
func (t *AnnualTable) Value(year int, indicator string) (float64, bool) {
	row, ok := t.rows[year]
	if !ok {
		return Missing(), false
	}
	v, ok := row[indicator]
	if !ok || IsMissing(v) {
		return Missing(), false
	}
	return v, true
}

// HasYear reports whether the table has any aggregates for the given year.
func (t *AnnualTable) HasYear(year int) bool {
	_, ok := t.rows[year]
	return ok
}

// Years returns all years present in the table in ascending order.
func (t *AnnualTable) Years() []int {
	years := make([]int, 0, len(t.rows))
	for y := range t.rows {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Len returns the number of distinct years in the table.
func (t *AnnualTable) Len() int {
	return len(t.rows)
}
