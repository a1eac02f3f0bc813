package exporter

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelcli/pkg/contracts/domain"
)

func monthRow(year int, month time.Month, values map[string]float64) domain.Row {
	return domain.Row{
		Date:   time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		Year:   year,
		Values: values,
	}
}

func TestCollapse_MonthlyColumnTakesDecember(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"UNEMPLOYMENT_RATE"},
		Rows: []domain.Row{
			monthRow(2020, time.January, map[string]float64{"UNEMPLOYMENT_RATE": 3.5}),
			monthRow(2020, time.June, map[string]float64{"UNEMPLOYMENT_RATE": 11.0}),
			monthRow(2020, time.December, map[string]float64{"UNEMPLOYMENT_RATE": 6.7}),
		},
	}
	series := []domain.Series{
		{Column: "UNEMPLOYMENT_RATE", Frequency: domain.FrequencyMonthly},
	}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 6.7, ds.Rows[0].Values["UNEMPLOYMENT_RATE"])
}

func TestCollapse_MonthlyFallsBackToLastObservation(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"UNEMPLOYMENT_RATE"},
		Rows: []domain.Row{
			monthRow(2024, time.January, map[string]float64{"UNEMPLOYMENT_RATE": 3.7}),
			monthRow(2024, time.May, map[string]float64{"UNEMPLOYMENT_RATE": 4.0}),
		},
	}
	series := []domain.Series{
		{Column: "UNEMPLOYMENT_RATE", Frequency: domain.FrequencyMonthly},
	}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 4.0, ds.Rows[0].Values["UNEMPLOYMENT_RATE"],
		"a year without a December observation takes the last one")
}

func TestCollapse_AnnualColumnTakesFirstObserved(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"MEDIAN_HOUSEHOLD_INCOME"},
		Rows: []domain.Row{
			monthRow(2020, time.January, map[string]float64{}),
			monthRow(2020, time.December, map[string]float64{"MEDIAN_HOUSEHOLD_INCOME": 68700}),
		},
	}
	series := []domain.Series{
		{Column: "MEDIAN_HOUSEHOLD_INCOME", Frequency: domain.FrequencyAnnual},
	}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 68700.0, ds.Rows[0].Values["MEDIAN_HOUSEHOLD_INCOME"])
}

func TestCollapse_DerivedAndAllAbsentColumnsDropped(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"X", "X_PCT_CHANGE", "EMPTY"},
		Rows: []domain.Row{
			monthRow(2020, time.January, map[string]float64{"X": 1, "X_PCT_CHANGE": 5}),
		},
	}
	series := []domain.Series{{Column: "X", Frequency: domain.FrequencyMonthly}}

	e := NewAnnualExporter(slog.Default(), "")
	ds := e.Collapse(context.Background(), table, series)

	assert.Contains(t, ds.Columns, "X")
	assert.NotContains(t, ds.Columns, "X_PCT_CHANGE")
	assert.NotContains(t, ds.Columns, "EMPTY")
}

func TestCollapse_CategoricalColumns(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"UNEMPLOYMENT_RATE"},
		Rows: []domain.Row{
			monthRow(1965, time.December, map[string]float64{"UNEMPLOYMENT_RATE": 4.1}),
			monthRow(2009, time.December, map[string]float64{"UNEMPLOYMENT_RATE": 9.9}),
			monthRow(2021, time.December, map[string]float64{"UNEMPLOYMENT_RATE": 3.9}),
		},
	}
	series := []domain.Series{
		{Column: "UNEMPLOYMENT_RATE", Frequency: domain.FrequencyMonthly},
	}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	require.Len(t, ds.Rows, 3)

	assert.Equal(t, 1960.0, ds.Rows[0].Values[ColumnDecade])
	assert.Equal(t, 2.0, ds.Rows[0].Values[ColumnEconEra])
	assert.Equal(t, 2.0, ds.Rows[0].Values[ColumnUnempCat])

	assert.Equal(t, 2000.0, ds.Rows[1].Values[ColumnDecade])
	assert.Equal(t, 5.0, ds.Rows[1].Values[ColumnEconEra])
	assert.Equal(t, 4.0, ds.Rows[1].Values[ColumnUnempCat])

	assert.Equal(t, 2020.0, ds.Rows[2].Values[ColumnDecade])
	assert.Equal(t, 6.0, ds.Rows[2].Values[ColumnEconEra])
	assert.Equal(t, 1.0, ds.Rows[2].Values[ColumnUnempCat])
}

func TestCollapse_UnempCatOmittedWithoutSourceColumn(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"GINI_INDEX"},
		Rows: []domain.Row{
			monthRow(2020, time.January, map[string]float64{"GINI_INDEX": 41.5}),
		},
	}
	series := []domain.Series{{Column: "GINI_INDEX", Frequency: domain.FrequencyAnnual}}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	assert.NotContains(t, ds.Columns, ColumnUnempCat)
	assert.Contains(t, ds.Columns, ColumnDecade)
	assert.Contains(t, ds.Columns, ColumnEconEra)
}

func TestCollapse_LabelsFromSeriesTitles(t *testing.T) {
	table := &domain.MergedTable{
		Columns: []string{"UNEMPLOYMENT_RATE"},
		Rows: []domain.Row{
			monthRow(2020, time.December, map[string]float64{"UNEMPLOYMENT_RATE": 6.7}),
		},
	}
	series := []domain.Series{
		{
			Column:    "UNEMPLOYMENT_RATE",
			Frequency: domain.FrequencyMonthly,
			Meta:      domain.SeriesMeta{Title: "Unemployment Rate"},
		},
	}

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	ds := e.Collapse(context.Background(), table, series)

	assert.Equal(t, "Unemployment Rate", ds.Labels["UNEMPLOYMENT_RATE"])
	assert.Equal(t, "Economic Era", ds.Labels[ColumnEconEra])
}

func TestWriteAnnual_FilesWritten(t *testing.T) {
	ds := &AnnualDataset{
		Columns: []string{"UNEMPLOYMENT_RATE", ColumnDecade},
		Labels: map[string]string{
			"UNEMPLOYMENT_RATE": "Unemployment Rate",
			ColumnDecade:        "Decade",
		},
		Rows: []AnnualRow{
			{Year: 2020, Values: map[string]float64{
				"UNEMPLOYMENT_RATE": 6.7,
				ColumnDecade:        2020,
			}},
			{Year: 2021, Values: map[string]float64{
				ColumnDecade: 2020,
			}},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "annual.csv")
	labelsPath := filepath.Join(dir, "labels.json")

	e := NewAnnualExporter(slog.Default(), "UNEMPLOYMENT_RATE")
	require.NoError(t, e.WriteAnnual(path, labelsPath, ds))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"year", "UNEMPLOYMENT_RATE", ColumnDecade}, rows[0])
	assert.Equal(t, []string{"2020", "6.7", "2020"}, rows[1])
	assert.Equal(t, []string{"2021", "", "2020"}, rows[2])

	data, err := os.ReadFile(labelsPath)
	require.NoError(t, err)
	var labels map[string]string
	require.NoError(t, json.Unmarshal(data, &labels))
	assert.Equal(t, "Unemployment Rate", labels["UNEMPLOYMENT_RATE"])
}

func TestEconomicEra_Boundaries(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{1945, 1},
		{1946, 2},
		{1972, 2},
		{1973, 3},
		{1990, 3},
		{1991, 4},
		{2007, 4},
		{2008, 5},
		{2019, 5},
		{2020, 6},
		{2024, 6},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, economicEra(tt.year), "year %d", tt.year)
	}
}

func TestUnemploymentCategory_Boundaries(t *testing.T) {
	assert.Equal(t, 1.0, unemploymentCategory(3.9))
	assert.Equal(t, 2.0, unemploymentCategory(4.0))
	assert.Equal(t, 2.0, unemploymentCategory(5.9))
	assert.Equal(t, 3.0, unemploymentCategory(6.0))
	assert.Equal(t, 4.0, unemploymentCategory(8.0))
	assert.True(t, domain.IsMissing(unemploymentCategory(domain.Missing())))
}
