package microdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	apperrors "panelcli/internal/errors"
	"panelcli/pkg/contracts/domain"
)

// RespondentCount is the indicator column holding the number of respondents
// per survey year.
const RespondentCount = "respondent_count"

// Rule is one indicator extraction rule. Fields is the explicit, ordered
// list of accepted column names; the first one present in the dataset is
// used. Binary rules contribute 0/1 per record via Match and aggregate to a
// 0-100 percentage; continuous rules contribute the field value directly and
// aggregate to a plain mean.
type Rule struct {
	Name   string
	Fields []string
	Binary bool
	Match  func(v float64) bool
}

// DefaultRules returns the standard survey indicator set: union membership,
// employment, college education and household income.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "gss_union_pct",
			Fields: []string{"UNION", "union"},
			Binary: true,
			Match:  func(v float64) bool { return v == 1 },
		},
		{
			Name:   "gss_employed_pct",
			Fields: []string{"WRKSTAT", "wrkstat"},
			Binary: true,
			Match:  func(v float64) bool { return v == 1 },
		},
		{
			// Degree codes: 0=<HS, 1=HS, 2=some college, 3=bachelor, 4=graduate.
			Name:   "gss_college_pct",
			Fields: []string{"DEGREE", "degree"},
			Binary: true,
			Match:  func(v float64) bool { return v >= 3 },
		},
		{
			Name:   "gss_avg_income",
			Fields: []string{"REALINC", "realinc", "INCOME", "income"},
			Binary: false,
		},
	}
}

// Aggregator reduces individual survey records to one row per year with one
// aggregate value per indicator.
type Aggregator struct {
	logger      *slog.Logger
	yearAliases []string
	rules       []Rule
}

// NewAggregator creates an aggregator. yearAliases is the ordered list of
// accepted year column names; it is resolved exactly once per dataset.
func NewAggregator(logger *slog.Logger, yearAliases []string, rules []Rule) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(yearAliases) == 0 {
		yearAliases = []string{"YEAR", "year", "Year"}
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Aggregator{
		logger:      logger,
		yearAliases: yearAliases,
		rules:       rules,
	}
}

// ruleAccumulator tracks the running sum and contribution count for one
// indicator in one year.
type ruleAccumulator struct {
	sum   float64
	count int
}

// Aggregate reduces the dataset to an annual table. A dataset without any
// year column is a configuration error for that source; the caller skips
// the source and the run continues.
func (a *Aggregator) Aggregate(ctx context.Context, ds *Dataset) (*domain.AnnualTable, error) {
	yearColumn, ok := ds.Resolve(a.yearAliases)
	if !ok {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("no year column found among %v", a.yearAliases), nil)
	}

	a.logger.InfoContext(ctx, "aggregating microdata by year",
		slog.String("year_column", yearColumn),
		slog.Int("records", ds.Rows()))

	years, yearMissing, _ := ds.Column(yearColumn)

	// Resolve every rule's field once before touching the records. A rule
	// whose field does not exist in the dataset is omitted entirely rather
	// than emitted as all-absent.
	type boundRule struct {
		rule    Rule
		values  []float64
		missing []bool
	}
	var bound []boundRule
	for _, rule := range a.rules {
		field, ok := ds.Resolve(rule.Fields)
		if !ok {
			a.logger.InfoContext(ctx, "indicator field absent from dataset, omitting indicator",
				slog.String("indicator", rule.Name),
				slog.Any("fields", rule.Fields))
			continue
		}
		values, missing, _ := ds.Column(field)
		bound = append(bound, boundRule{rule: rule, values: values, missing: missing})
		a.logger.DebugContext(ctx, "indicator bound",
			slog.String("indicator", rule.Name),
			slog.String("field", field))
	}

	acc := make(map[int]map[string]*ruleAccumulator)
	counts := make(map[int]int)

	for i := range years {
		if yearMissing[i] {
			continue
		}
		year := int(math.Round(years[i]))
		counts[year]++

		for _, b := range bound {
			if i >= len(b.values) || b.missing[i] {
				continue
			}
			byRule, ok := acc[year]
			if !ok {
				byRule = make(map[string]*ruleAccumulator)
				acc[year] = byRule
			}
			ra, ok := byRule[b.rule.Name]
			if !ok {
				ra = &ruleAccumulator{}
				byRule[b.rule.Name] = ra
			}

			if b.rule.Binary {
				if b.rule.Match(b.values[i]) {
					ra.sum++
				}
			} else {
				ra.sum += b.values[i]
			}
			ra.count++
		}
	}

	table := domain.NewAnnualTable()
	for _, b := range bound {
		table.AddIndicator(b.rule.Name)
	}
	table.AddIndicator(RespondentCount)

	for year, n := range counts {
		for _, b := range bound {
			ra := acc[year][b.rule.Name]
			if ra == nil || ra.count == 0 {
				// Zero contributing records yield an absent aggregate,
				// never zero.
				table.Set(year, b.rule.Name, domain.Missing())
				continue
			}
			mean := ra.sum / float64(ra.count)
			if b.rule.Binary {
				mean *= 100
			}
			table.Set(year, b.rule.Name, mean)
		}
		table.Set(year, RespondentCount, float64(n))
	}

	a.logger.InfoContext(ctx, "microdata aggregation complete",
		slog.Int("years", table.Len()),
		slog.Int("indicators", len(table.Indicators)))

	return table, nil
}
