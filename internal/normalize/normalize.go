// Package normalize converts raw fetch adapter output into well-formed
// series: parsed dates, parsed-or-missing values, unique sorted observations
// and metadata carried over verbatim.
package normalize

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"panelcli/pkg/contracts/domain"
)

// DateFormat is the calendar date layout used by all upstream sources.
const DateFormat = "2006-01-02"

// missingMarkers are the value tokens that mean "not observed". They map to
// the missing sentinel, never to zero and never to an error.
var missingMarkers = map[string]bool{
	"":    true,
	".":   true,
	"NA":  true,
	"N/A": true,
}

// Series converts a raw series into the canonical representation. Unparsable
// dates are dropped with a warning; duplicate dates keep the first
// occurrence in source order, since upstream ordering is authoritative.
// Frequency and coverage come from the metadata record as-is; nothing is
// inferred from the cadence of the observations.
func Series(raw domain.RawSeries, logger *slog.Logger) domain.Series {
	if logger == nil {
		logger = slog.Default()
	}

	s := domain.Series{
		ID:        raw.ID,
		Column:    raw.Column,
		Frequency: domain.FrequencyFromLabel(raw.Meta.Frequency, raw.Meta.FrequencyShort),
		Meta:      raw.Meta,
	}
	s.CoverageStart = parseCoverage(raw.Meta.ObservationStart)
	s.CoverageEnd = parseCoverage(raw.Meta.ObservationEnd)

	seen := make(map[time.Time]bool, len(raw.Observations))
	dropped := 0
	for _, obs := range raw.Observations {
		date, err := time.Parse(DateFormat, obs.DateToken)
		if err != nil {
			dropped++
			logger.Warn("dropping observation with unparsable date",
				slog.String("series_id", raw.ID),
				slog.String("date_token", obs.DateToken))
			continue
		}
		if seen[date] {
			continue
		}
		seen[date] = true

		s.Observations = append(s.Observations, domain.Observation{
			Date:  date,
			Value: parseValue(obs.ValueToken),
		})
	}

	sort.Slice(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})

	if dropped > 0 {
		logger.Warn("observations dropped during normalization",
			slog.String("series_id", raw.ID),
			slog.Int("dropped", dropped),
			slog.Int("kept", len(s.Observations)))
	}

	return s
}

// parseValue maps a value token to a float or the missing sentinel. Tokens
// that do not parse are treated as missing, matching upstream convention.
func parseValue(token string) float64 {
	token = strings.TrimSpace(token)
	if missingMarkers[token] {
		return domain.Missing()
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return domain.Missing()
	}
	return v
}

func parseCoverage(token *string) *time.Time {
	if token == nil {
		return nil
	}
	t, err := time.Parse(DateFormat, *token)
	if err != nil {
		return nil
	}
	return &t
}
