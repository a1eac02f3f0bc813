package domain

import "time"

// Row is one row of the merged table. Date is the zero time for rows that
// exist only in year space (unmatched annual aggregates kept by option);
// every dated row has Year derived from its date.
type Row struct {
	Date   time.Time
	Year   int
	Values map[string]float64
}

// HasDate reports whether the row is keyed by a calendar date.
func (r Row) HasDate() bool {
	return !r.Date.IsZero()
}

// Value returns the row's value for a column, or the missing sentinel when
// the column does not participate in this row.
func (r Row) Value(column string) float64 {
	v, ok := r.Values[column]
	if !ok {
		return Missing()
	}
	return v
}

// MergedTable is the wide date-keyed table produced by the alignment merge.
// Columns holds the value column names in output order; it never contains
// the date or year key columns. The table is built once per run and only
// ever extended column-wise by the derived-metrics pass.
type MergedTable struct {
	Columns []string
	Rows    []Row
}

// AddColumn appends a value column if it is not already present.
func (t *MergedTable) AddColumn(name string) {
	for _, existing := range t.Columns {
		if existing == name {
			return
		}
	}
	t.Columns = append(t.Columns, name)
}

// ColumnAllMissing reports whether a column has no observed value in any row.
func (t *MergedTable) ColumnAllMissing(column string) bool {
	for _, row := range t.Rows {
		if !IsMissing(row.Value(column)) {
			return false
		}
	}
	return true
}

// Empty reports whether the table has no rows.
func (t *MergedTable) Empty() bool {
	return len(t.Rows) == 0
}
