package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"panelcli/internal/config"
	"panelcli/pkg/contracts/domain"
)

// Poverty series constants for the Census historical poverty tables.
const (
	censusSeriesID = "CENSUS_HISTPOV2_POV_RATE_ALL_PEOPLE"
	censusTitle    = "Official Poverty Rate (All People)"
)

// allPeopleLabels are the AGE values that identify the all-population rows
// in the histpov2 table.
var allPeopleLabels = map[string]bool{
	"All people": true,
	"All People": true,
	"0":          true,
}

// CensusClient fetches the official poverty rate from the Census historical
// poverty tables (histpov2), a tabular statistical API that keys rows by
// survey year rather than calendar date.
type CensusClient struct {
	client   *Client
	baseURL  string
	fromYear int
	toYear   int
	logger   *slog.Logger
}

// NewCensusClient creates a Census adapter using the shared fetch client.
func NewCensusClient(cfg config.CensusConfig, client *Client, logger *slog.Logger) *CensusClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CensusClient{
		client:   client,
		baseURL:  cfg.BaseURL,
		fromYear: cfg.FromYear,
		toYear:   cfg.ToYear,
		logger:   logger,
	}
}

// Fetch retrieves the poverty rate series. Year keys are mapped onto
// December 31 dates so the series joins cleanly with date-keyed sources.
// Like the other adapters it degrades to an empty raw series on failure.
func (c *CensusClient) Fetch(ctx context.Context, seriesID, column string) domain.RawSeries {
	if seriesID == "" {
		seriesID = censusSeriesID
	}
	raw := domain.RawSeries{
		ID:     seriesID,
		Column: column,
		Meta: domain.SeriesMeta{
			SeriesID:           seriesID,
			Frequency:          "Annual",
			FrequencyShort:     "A",
			Title:              censusTitle,
			Units:              "Percent",
			SeasonalAdjustment: "Not Seasonally Adjusted",
			Notes:              "U.S. Census Historical Poverty Tables (histpov2); filtered for 'All people'.",
		},
	}

	params := url.Values{}
	params.Set("get", "YEAR,AGE,POV_RATE")
	params.Set("time", fmt.Sprintf("from %d to %d", c.fromYear, c.toYear))

	// The Census API answers with a header row followed by string rows.
	var table [][]string
	if err := c.client.GetJSON(ctx, c.baseURL, params, &table); err != nil {
		c.logger.ErrorContext(ctx, "poverty table fetch failed, series will be empty",
			slog.String("series_id", seriesID),
			slog.String("error", err.Error()))
		return raw
	}

	if len(table) < 2 {
		c.logger.WarnContext(ctx, "poverty table response has no data rows",
			slog.String("series_id", seriesID))
		return raw
	}

	idxYear, idxAge, idxRate := -1, -1, -1
	for i, name := range table[0] {
		switch name {
		case "YEAR":
			idxYear = i
		case "AGE":
			idxAge = i
		case "POV_RATE":
			idxRate = i
		}
	}
	if idxYear < 0 || idxAge < 0 || idxRate < 0 {
		c.logger.ErrorContext(ctx, "poverty table has unexpected columns, series will be empty",
			slog.Any("header", table[0]))
		return raw
	}

	var minYear, maxYear string
	for _, row := range table[1:] {
		if len(row) <= idxYear || len(row) <= idxAge || len(row) <= idxRate {
			continue
		}
		if !allPeopleLabels[row[idxAge]] {
			continue
		}
		year := row[idxYear]
		raw.Observations = append(raw.Observations, domain.RawObservation{
			DateToken:  year + "-12-31",
			ValueToken: row[idxRate],
		})
		if minYear == "" || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}

	if len(raw.Observations) == 0 {
		c.logger.WarnContext(ctx, "no all-people rows matched in poverty table",
			slog.String("series_id", seriesID))
		return raw
	}

	start := minYear + "-12-31"
	end := maxYear + "-12-31"
	raw.Meta.ObservationStart = &start
	raw.Meta.ObservationEnd = &end

	c.logger.InfoContext(ctx, "fetched series",
		slog.String("series_id", seriesID),
		slog.String("column", column),
		slog.String("frequency", raw.Meta.Frequency),
		slog.Int("observations", len(raw.Observations)))

	return raw
}
