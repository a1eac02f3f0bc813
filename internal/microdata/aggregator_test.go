package microdata

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "panelcli/internal/errors"
)

// datasetFromRecords builds a dataset from header + string records,
// mirroring what the CSV and XLSX readers produce.
func datasetFromRecords(t *testing.T, rows [][]string) *Dataset {
	t.Helper()
	ds, err := datasetFromRows(rows, "test", slog.Default())
	require.NoError(t, err)
	return ds
}

func unionRule() Rule {
	return Rule{
		Name:   "gss_union_pct",
		Fields: []string{"UNION", "union"},
		Binary: true,
		Match:  func(v float64) bool { return v == 1 },
	}
}

func incomeRule() Rule {
	return Rule{
		Name:   "gss_avg_income",
		Fields: []string{"REALINC", "realinc"},
		Binary: false,
	}
}

func TestAggregate_BinaryIndicatorPercentage(t *testing.T) {
	ds := datasetFromRecords(t, [][]string{
		{"year", "union"},
		{"2020", "1"},
		{"2020", "0"},
		{"2021", "1"},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{unionRule()})
	table, err := agg.Aggregate(context.Background(), ds)
	require.NoError(t, err)

	v2020, ok := table.Value(2020, "gss_union_pct")
	require.True(t, ok)
	assert.Equal(t, 50.0, v2020)

	v2021, ok := table.Value(2021, "gss_union_pct")
	require.True(t, ok)
	assert.Equal(t, 100.0, v2021)
}

func TestAggregate_ContinuousIndicatorMean(t *testing.T) {
	ds := datasetFromRecords(t, [][]string{
		{"YEAR", "REALINC"},
		{"2020", "10000"},
		{"2020", "30000"},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{incomeRule()})
	table, err := agg.Aggregate(context.Background(), ds)
	require.NoError(t, err)

	v, ok := table.Value(2020, "gss_avg_income")
	require.True(t, ok)
	assert.Equal(t, 20000.0, v)
}

func TestAggregate_ZeroContributorsYieldAbsent(t *testing.T) {
	// 2021 respondents exist but none answered the union question: the
	// aggregate must be absent, not zero.
	ds := datasetFromRecords(t, [][]string{
		{"year", "union"},
		{"2020", "1"},
		{"2021", ""},
		{"2021", "."},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{unionRule()})
	table, err := agg.Aggregate(context.Background(), ds)
	require.NoError(t, err)

	require.True(t, table.HasYear(2021))
	_, ok := table.Value(2021, "gss_union_pct")
	assert.False(t, ok, "zero contributing records must yield an absent aggregate")

	count, ok := table.Value(2021, RespondentCount)
	require.True(t, ok)
	assert.Equal(t, 2.0, count)
}

func TestAggregate_MissingYearColumnIsConfigError(t *testing.T) {
	ds := datasetFromRecords(t, [][]string{
		{"union"},
		{"1"},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{unionRule()})
	_, err := agg.Aggregate(context.Background(), ds)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestAggregate_AbsentFieldOmitsIndicator(t *testing.T) {
	ds := datasetFromRecords(t, [][]string{
		{"year", "union"},
		{"2020", "1"},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{unionRule(), incomeRule()})
	table, err := agg.Aggregate(context.Background(), ds)
	require.NoError(t, err)

	assert.Contains(t, table.Indicators, "gss_union_pct")
	assert.NotContains(t, table.Indicators, "gss_avg_income",
		"indicator whose field is absent from the dataset is omitted entirely")
}

func TestAggregate_YearAliasResolutionOrder(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"upper case", "YEAR"},
		{"lower case", "year"},
		{"title case", "Year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := datasetFromRecords(t, [][]string{
				{tt.header, "union"},
				{"2020", "1"},
			})

			agg := NewAggregator(slog.Default(), nil, []Rule{unionRule()})
			table, err := agg.Aggregate(context.Background(), ds)
			require.NoError(t, err)
			assert.True(t, table.HasYear(2020))
		})
	}
}

func TestAggregate_RecordsWithMissingYearSkipped(t *testing.T) {
	ds := datasetFromRecords(t, [][]string{
		{"year", "union"},
		{"2020", "1"},
		{"", "1"},
	})

	agg := NewAggregator(slog.Default(), nil, []Rule{unionRule()})
	table, err := agg.Aggregate(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	count, ok := table.Value(2020, RespondentCount)
	require.True(t, ok)
	assert.Equal(t, 1.0, count)
}

func TestDefaultRules_CollegeThreshold(t *testing.T) {
	var college Rule
	for _, rule := range DefaultRules() {
		if rule.Name == "gss_college_pct" {
			college = rule
		}
	}
	require.NotNil(t, college.Match)

	assert.False(t, college.Match(2), "some college is below the bachelor threshold")
	assert.True(t, college.Match(3))
	assert.True(t, college.Match(4))
}
