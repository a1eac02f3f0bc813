// Package merge combines normalized series and annual aggregates into one
// wide date-keyed table. The date-keyed merge is a full outer join: every
// date observed in any series yields exactly one row, with absent values for
// columns that do not participate at that date. There is no resampling,
// forward-fill or interpolation.
package merge

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"panelcli/pkg/contracts/domain"
)

// Options controls merge behavior for the year-keyed join.
type Options struct {
	// KeepUnmatchedYears appends year-only rows for annual aggregates whose
	// year matches no date row, instead of dropping them. Dropped years are
	// always counted and logged either way.
	KeepUnmatchedYears bool
}

// Merger folds an ordered list of series plus an optional annual table into
// a single merged table.
type Merger struct {
	logger *slog.Logger
	opts   Options
}

// NewMerger creates a merger with the given options.
func NewMerger(logger *slog.Logger, opts Options) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger, opts: opts}
}

// Merge performs the alignment merge. Series order determines column order
// only; the final row order is strictly ascending by date regardless of the
// order series were folded in. Each row's year is derived from its date, and
// annual indicator columns are left-joined on that derived year, broadcast
// across every row sharing the year.
func (m *Merger) Merge(ctx context.Context, series []domain.Series, annual *domain.AnnualTable) *domain.MergedTable {
	table := &domain.MergedTable{}
	byDate := make(map[time.Time]*domain.Row)

	for _, s := range series {
		table.AddColumn(s.Column)
		for _, obs := range s.Observations {
			row, ok := byDate[obs.Date]
			if !ok {
				row = &domain.Row{
					Date:   obs.Date,
					Year:   obs.Date.Year(),
					Values: make(map[string]float64),
				}
				byDate[obs.Date] = row
			}
			if !domain.IsMissing(obs.Value) {
				row.Values[s.Column] = obs.Value
			}
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table.Rows = make([]domain.Row, 0, len(dates))
	for _, date := range dates {
		table.Rows = append(table.Rows, *byDate[date])
	}

	m.logger.InfoContext(ctx, "date-keyed outer join complete",
		slog.Int("series", len(series)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)))

	if annual != nil && annual.Len() > 0 {
		m.joinAnnual(ctx, table, annual)
	}

	return table
}

// joinAnnual left-joins annual indicator columns onto the date rows.
func (m *Merger) joinAnnual(ctx context.Context, table *domain.MergedTable, annual *domain.AnnualTable) {
	for _, indicator := range annual.Indicators {
		table.AddColumn(indicator)
	}

	matchedYears := make(map[int]bool)
	for i := range table.Rows {
		row := &table.Rows[i]
		if !annual.HasYear(row.Year) {
			continue
		}
		matchedYears[row.Year] = true
		for _, indicator := range annual.Indicators {
			if v, ok := annual.Value(row.Year, indicator); ok {
				row.Values[indicator] = v
			}
		}
	}

	var unmatched []int
	for _, year := range annual.Years() {
		if !matchedYears[year] {
			unmatched = append(unmatched, year)
		}
	}
	if len(unmatched) == 0 {
		return
	}

	if !m.opts.KeepUnmatchedYears {
		// The year-keyed side loses rows here; this is deliberate but loud.
		m.logger.WarnContext(ctx, "annual aggregates dropped: no date row shares their year",
			slog.Int("dropped_years", len(unmatched)),
			slog.Any("years", unmatched))
		return
	}

	for _, year := range unmatched {
		row := domain.Row{Year: year, Values: make(map[string]float64)}
		for _, indicator := range annual.Indicators {
			if v, ok := annual.Value(year, indicator); ok {
				row.Values[indicator] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	// Year-only rows sort after all dated rows, ascending by year.
	sort.SliceStable(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		switch {
		case a.HasDate() && b.HasDate():
			return a.Date.Before(b.Date)
		case a.HasDate():
			return true
		case b.HasDate():
			return false
		default:
			return a.Year < b.Year
		}
	})

	m.logger.InfoContext(ctx, "kept year-only rows for unmatched annual aggregates",
		slog.Int("years", len(unmatched)))
}
