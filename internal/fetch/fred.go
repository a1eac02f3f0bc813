package fetch

import (
	"context"
	"log/slog"
	"net/url"

	"panelcli/internal/config"
	"panelcli/pkg/contracts/domain"
)

// FredClient fetches economic time series from a FRED-compatible
// observations API. The API key is injected at construction time.
type FredClient struct {
	client  *Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewFredClient creates a FRED adapter using the shared fetch client.
func NewFredClient(cfg config.FredConfig, client *Client, logger *slog.Logger) *FredClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FredClient{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

// seriesMetaResponse mirrors the /series endpoint payload.
type seriesMetaResponse struct {
	Seriess []struct {
		Frequency          string `json:"frequency"`
		FrequencyShort     string `json:"frequency_short"`
		ObservationStart   string `json:"observation_start"`
		ObservationEnd     string `json:"observation_end"`
		Title              string `json:"title"`
		Units              string `json:"units"`
		SeasonalAdjustment string `json:"seasonal_adjustment"`
		Notes              string `json:"notes"`
	} `json:"seriess"`
}

// observationsResponse mirrors the /series/observations endpoint payload.
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Fetch retrieves the full available history for a series together with its
// metadata record. Failures are logged and produce an empty raw series with
// null coverage, never an error: a missing source must not sink the run.
func (c *FredClient) Fetch(ctx context.Context, seriesID, column string) domain.RawSeries {
	raw := domain.RawSeries{
		ID:     seriesID,
		Column: column,
		Meta:   domain.SeriesMeta{SeriesID: seriesID},
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")

	var meta seriesMetaResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/series", params, &meta); err != nil {
		c.logger.WarnContext(ctx, "series metadata fetch failed",
			slog.String("series_id", seriesID),
			slog.String("error", err.Error()))
	} else if len(meta.Seriess) == 0 {
		c.logger.WarnContext(ctx, "no metadata returned for series",
			slog.String("series_id", seriesID))
	} else {
		m := meta.Seriess[0]
		raw.Meta.Frequency = m.Frequency
		raw.Meta.FrequencyShort = m.FrequencyShort
		raw.Meta.Title = m.Title
		raw.Meta.Units = m.Units
		raw.Meta.SeasonalAdjustment = m.SeasonalAdjustment
		raw.Meta.Notes = m.Notes
		if m.ObservationStart != "" {
			raw.Meta.ObservationStart = &m.ObservationStart
		}
		if m.ObservationEnd != "" {
			raw.Meta.ObservationEnd = &m.ObservationEnd
		}
	}

	// Intentionally no observation_start/end parameters: full history.
	var obs observationsResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/series/observations", params, &obs); err != nil {
		c.logger.ErrorContext(ctx, "observations fetch failed, series will be empty",
			slog.String("series_id", seriesID),
			slog.String("error", err.Error()))
		return raw
	}

	for _, o := range obs.Observations {
		if o.Date == "" {
			continue
		}
		raw.Observations = append(raw.Observations, domain.RawObservation{
			DateToken:  o.Date,
			ValueToken: o.Value,
		})
	}

	c.logger.InfoContext(ctx, "fetched series",
		slog.String("series_id", seriesID),
		slog.String("column", column),
		slog.String("frequency", raw.Meta.Frequency),
		slog.Int("observations", len(raw.Observations)))

	return raw
}
