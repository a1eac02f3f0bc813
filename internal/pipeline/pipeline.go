// Package pipeline orchestrates one batch run: fetch every configured
// source, normalize, aggregate microdata, merge, derive metrics and write
// the output artifacts. The run is single-pass; only the fetches execute
// concurrently, and their results are re-ordered by series index so column
// order never depends on network timing.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"panelcli/internal/config"
	"panelcli/internal/derive"
	apperrors "panelcli/internal/errors"
	"panelcli/internal/exporter"
	"panelcli/internal/fetch"
	"panelcli/internal/merge"
	"panelcli/internal/microdata"
	"panelcli/internal/normalize"
	"panelcli/pkg/contracts/domain"
)

// SourceClient is the fetch capability the pipeline depends on. Adapters
// never fail a run: an unreachable source produces an empty raw series.
type SourceClient interface {
	Fetch(ctx context.Context, seriesID, column string) domain.RawSeries
}

// Pipeline wires the components of one run together.
type Pipeline struct {
	cfg     *config.Config
	sources map[string]SourceClient
	logger  *slog.Logger
}

// New creates a pipeline from configuration, constructing the standard
// source adapters over one shared fetch client.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	client := fetch.NewClient(cfg.Fetch, logger)
	return &Pipeline{
		cfg: cfg,
		sources: map[string]SourceClient{
			"fred":   fetch.NewFredClient(cfg.Fred, client, logger),
			"census": fetch.NewCensusClient(cfg.Census, client, logger),
		},
		logger: logger,
	}
}

// NewWithSources creates a pipeline with explicit source adapters. Used by
// tests and callers that bring their own fetch capability.
func NewWithSources(cfg *config.Config, sources map[string]SourceClient, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, sources: sources, logger: logger}
}

// Run executes one full pipeline pass. It returns an error only when the
// run produced nothing to write or an output artifact could not be written;
// individual source failures degrade to warnings.
func (p *Pipeline) Run(ctx context.Context, runID string) error {
	raws := p.fetchAll(ctx)

	series := make([]domain.Series, 0, len(raws))
	for _, raw := range raws {
		s := normalize.Series(raw, p.logger)
		if s.Empty() {
			p.logger.WarnContext(ctx, "series has no observations",
				slog.String("series_id", s.ID),
				slog.String("column", s.Column))
		}
		series = append(series, s)
	}

	annual := p.aggregateMicrodata(ctx)

	if allEmpty(series) && (annual == nil || annual.Len() == 0) {
		return apperrors.NewNoDataError("no source produced any data; nothing to write")
	}

	merger := merge.NewMerger(p.logger, merge.Options{
		KeepUnmatchedYears: p.cfg.Output.KeepUnmatchedYears,
	})
	table := merger.Merge(ctx, series, annual)
	if table.Empty() {
		return apperrors.NewNoDataError("merged table is empty; nothing to write")
	}

	derive.PercentChange(ctx, table, p.logger)

	// All computation succeeded; only now touch the filesystem.
	return p.writeArtifacts(ctx, runID, table, series)
}

// fetchAll runs every configured fetch concurrently and returns the raw
// series in configuration order.
func (p *Pipeline) fetchAll(ctx context.Context) []domain.RawSeries {
	raws := make([]domain.RawSeries, len(p.cfg.Series))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range p.cfg.Series {
		source, ok := p.sources[spec.Source]
		if !ok {
			p.logger.WarnContext(ctx, "unknown source, series will be empty",
				slog.String("source", spec.Source),
				slog.String("series_id", spec.ID))
			raws[i] = domain.RawSeries{
				ID:     spec.ID,
				Column: spec.Column,
				Meta:   domain.SeriesMeta{SeriesID: spec.ID},
			}
			continue
		}

		i, spec, source := i, spec, source
		g.Go(func() error {
			raws[i] = source.Fetch(gctx, spec.ID, spec.Column)
			return nil
		})
	}
	// Fetch goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()

	return raws
}

// aggregateMicrodata loads and aggregates the survey microdata source, if
// configured. Any failure skips the source and the run continues.
func (p *Pipeline) aggregateMicrodata(ctx context.Context) *domain.AnnualTable {
	if p.cfg.Microdata.Path == "" {
		return nil
	}

	ds, err := microdata.Open(p.cfg.Microdata.Path, p.logger)
	if err != nil {
		p.logger.ErrorContext(ctx, "microdata source skipped",
			slog.String("path", p.cfg.Microdata.Path),
			slog.String("error", err.Error()))
		return nil
	}

	agg := microdata.NewAggregator(p.logger, p.cfg.Microdata.YearAliases, microdata.DefaultRules())
	table, err := agg.Aggregate(ctx, ds)
	if err != nil {
		p.logger.ErrorContext(ctx, "microdata source skipped",
			slog.String("path", p.cfg.Microdata.Path),
			slog.String("error", err.Error()))
		return nil
	}

	return table
}

// writeArtifacts writes the merged table, the provenance sidecar and the
// optional annual collapse.
func (p *Pipeline) writeArtifacts(ctx context.Context, runID string, table *domain.MergedTable, series []domain.Series) error {
	out := p.cfg.Output

	csvWriter := exporter.NewCSVWriter(p.logger)
	if err := csvWriter.WriteMergedTable(out.PathTo(out.TableFile), table); err != nil {
		return err
	}

	provenance := exporter.NewProvenanceWriter(p.logger)
	if err := provenance.Write(out.PathTo(out.MetaFile), runID, series); err != nil {
		return err
	}

	if out.WriteAnnual {
		annualExporter := exporter.NewAnnualExporter(p.logger, out.UnemploymentColumn)
		ds := annualExporter.Collapse(ctx, table, series)
		if err := annualExporter.WriteAnnual(out.PathTo(out.AnnualFile), out.PathTo(out.AnnualLabelsFile), ds); err != nil {
			return err
		}
	}

	p.logger.InfoContext(ctx, "pipeline run complete",
		slog.String("run_id", runID),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)))

	return nil
}

func allEmpty(series []domain.Series) bool {
	for _, s := range series {
		if !s.Empty() {
			return false
		}
	}
	return true
}
