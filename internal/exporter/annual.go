package exporter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"panelcli/internal/derive"
	apperrors "panelcli/internal/errors"
	"panelcli/pkg/contracts/domain"
)

// Categorical column names added by the annual collapse.
const (
	ColumnDecade   = "decade"
	ColumnEconEra  = "econ_era"
	ColumnUnempCat = "unemp_cat"
)

// AnnualRow is one year of the collapsed dataset.
type AnnualRow struct {
	Year   int
	Values map[string]float64
}

// AnnualDataset is the one-row-per-year collapse of the merged table,
// suitable for column-typed statistical consumers. Columns that are absent
// in every row of the merged table are dropped here.
type AnnualDataset struct {
	Columns []string
	Labels  map[string]string
	Rows    []AnnualRow
}

// AnnualExporter collapses the merged table to an annual dataset and writes
// it with a variable-label sidecar.
type AnnualExporter struct {
	logger *slog.Logger
	// unemploymentColumn feeds the ordinal unemployment category; empty
	// or absent columns simply omit the category.
	unemploymentColumn string
}

// NewAnnualExporter creates an annual exporter. unemploymentColumn names the
// merged-table column used for the unemployment category buckets.
func NewAnnualExporter(logger *slog.Logger, unemploymentColumn string) *AnnualExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnualExporter{
		logger:             logger,
		unemploymentColumn: unemploymentColumn,
	}
}

// Collapse reduces the merged table to one row per year. Monthly columns
// take their December observation, falling back to the last observation of
// the year; all other columns take the first observed value in the year.
// Derived percent-change columns are excluded, they are re-derivable from
// the annual values and would be misleading after collapsing.
func (e *AnnualExporter) Collapse(ctx context.Context, table *domain.MergedTable, series []domain.Series) *AnnualDataset {
	freq := make(map[string]domain.Frequency, len(series))
	label := make(map[string]string, len(series))
	for _, s := range series {
		freq[s.Column] = s.Frequency
		label[s.Column] = s.Meta.Title
	}

	var columns []string
	for _, column := range table.Columns {
		if strings.HasSuffix(column, derive.Suffix) {
			continue
		}
		if table.ColumnAllMissing(column) {
			e.logger.InfoContext(ctx, "dropping all-absent column from annual dataset",
				slog.String("column", column))
			continue
		}
		columns = append(columns, column)
	}

	rowsByYear := make(map[int][]domain.Row)
	var years []int
	for _, row := range table.Rows {
		if _, seen := rowsByYear[row.Year]; !seen {
			years = append(years, row.Year)
		}
		rowsByYear[row.Year] = append(rowsByYear[row.Year], row)
	}
	sort.Ints(years)

	ds := &AnnualDataset{
		Columns: columns,
		Labels:  make(map[string]string),
	}
	for _, column := range columns {
		if title := label[column]; title != "" {
			ds.Labels[column] = title
		} else {
			ds.Labels[column] = column
		}
	}

	hasUnemp := false
	for _, column := range columns {
		if column == e.unemploymentColumn {
			hasUnemp = true
		}
	}

	for _, year := range years {
		yearRows := rowsByYear[year]
		values := make(map[string]float64, len(columns)+3)

		for _, column := range columns {
			if freq[column] == domain.FrequencyMonthly {
				values[column] = monthlyYearValue(yearRows, column)
			} else {
				values[column] = firstObservedValue(yearRows, column)
			}
		}

		values[ColumnDecade] = float64(year / 10 * 10)
		values[ColumnEconEra] = float64(economicEra(year))
		if hasUnemp {
			values[ColumnUnempCat] = unemploymentCategory(values[e.unemploymentColumn])
		}

		ds.Rows = append(ds.Rows, AnnualRow{Year: year, Values: values})
	}

	ds.Columns = append(ds.Columns, ColumnDecade, ColumnEconEra)
	ds.Labels[ColumnDecade] = "Decade"
	ds.Labels[ColumnEconEra] = "Economic Era"
	if hasUnemp {
		ds.Columns = append(ds.Columns, ColumnUnempCat)
		ds.Labels[ColumnUnempCat] = "Unemployment Category"
	}

	e.logger.InfoContext(ctx, "annual collapse complete",
		slog.Int("years", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns)))

	return ds
}

// WriteAnnual writes the annual dataset as a delimited table plus a JSON
// variable-label sidecar.
func (e *AnnualExporter) WriteAnnual(path, labelsPath string, ds *AnnualDataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create annual dataset file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"year"}, ds.Columns...)
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("failed to write annual header row", err)
	}

	for i, row := range ds.Rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(row.Year))
		for _, column := range ds.Columns {
			v, ok := row.Values[column]
			if !ok {
				v = domain.Missing()
			}
			record = append(record, formatValue(v))
		}
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write annual row %d", i), err)
		}
	}
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush annual dataset file", err)
	}

	labels, err := json.MarshalIndent(ds.Labels, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal variable labels", err)
	}
	if err := os.WriteFile(labelsPath, labels, 0644); err != nil {
		return apperrors.NewStorageError("failed to write variable labels sidecar", err)
	}

	e.logger.Info("annual dataset written",
		slog.String("path", path),
		slog.String("labels_path", labelsPath),
		slog.Int("rows", len(ds.Rows)))
	return nil
}

// monthlyYearValue prefers the December observation of a monthly column,
// falling back to the last dated observation of the year.
func monthlyYearValue(yearRows []domain.Row, column string) float64 {
	for _, row := range yearRows {
		if row.HasDate() && row.Date.Month() == time.December {
			return row.Value(column)
		}
	}
	for i := len(yearRows) - 1; i >= 0; i-- {
		if !domain.IsMissing(yearRows[i].Value(column)) {
			return yearRows[i].Value(column)
		}
	}
	return domain.Missing()
}

// firstObservedValue returns the first non-missing value of a column within
// the year.
func firstObservedValue(yearRows []domain.Row, column string) float64 {
	for _, row := range yearRows {
		if v := row.Value(column); !domain.IsMissing(v) {
			return v
		}
	}
	return domain.Missing()
}

// economicEra buckets a year into one of six ordinal eras.
func economicEra(year int) int {
	switch {
	case year < 1946:
		return 1
	case year < 1973:
		return 2
	case year < 1991:
		return 3
	case year < 2008:
		return 4
	case year < 2020:
		return 5
	default:
		return 6
	}
}

// unemploymentCategory buckets an unemployment rate into an ordinal
// category: 1 low, 2 moderate, 3 high, 4 very high.
func unemploymentCategory(rate float64) float64 {
	switch {
	case domain.IsMissing(rate):
		return domain.Missing()
	case rate < 4.0:
		return 1
	case rate < 6.0:
		return 2
	case rate < 8.0:
		return 3
	default:
		return 4
	}
}
