// Package derive computes derived metric columns over the merged table.
package derive

import (
	"context"
	"log/slog"

	"panelcli/pkg/contracts/domain"
)

// Suffix is appended to a source column name to form its percent-change
// column name.
const Suffix = "_PCT_CHANGE"

// PercentChange adds a percent-change column for every value column in the
// table. The change at a row is computed against the nearest earlier row
// with an observed value in the same column, which makes the metric
// frequency-agnostic: an annually observed column gets a meaningful change
// at its next real observation even when months of absent rows intervene.
//
// The first observed value of a column has an absent change. A prior value
// of exactly zero also yields an absent change; division by zero is
// suppressed, never surfaced as an infinity.
//
// Year-only rows have no place on the dated timeline (they sort after every
// dated row regardless of year), so they neither receive a change nor feed
// the running previous value.
func PercentChange(ctx context.Context, table *domain.MergedTable, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	sourceColumns := make([]string, len(table.Columns))
	copy(sourceColumns, table.Columns)

	for _, column := range sourceColumns {
		derived := column + Suffix
		prev := domain.Missing()

		for i := range table.Rows {
			row := &table.Rows[i]
			if !row.HasDate() {
				continue
			}
			current := row.Value(column)
			if domain.IsMissing(current) {
				continue
			}
			if !domain.IsMissing(prev) && prev != 0 {
				row.Values[derived] = (current - prev) / prev * 100
			}
			prev = current
		}
	}

	// Each derived column sits immediately after its source column.
	ordered := make([]string, 0, len(sourceColumns)*2)
	for _, column := range sourceColumns {
		ordered = append(ordered, column, column+Suffix)
	}
	table.Columns = ordered

	logger.InfoContext(ctx, "percent-change columns computed",
		slog.Int("source_columns", len(sourceColumns)))
}
