package exporter

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "panelcli/internal/errors"
	"panelcli/pkg/contracts/domain"
)

// provenanceNotes describes the join and frequency semantics of the merged
// table for downstream consumers reading the sidecar.
const provenanceNotes = "Frequencies are as reported by upstream metadata. " +
	"The merged table preserves native frequencies; expect empty fields between " +
	"lower-frequency observations. Each series has a corresponding _PCT_CHANGE " +
	"column showing the percentage change from the previous available " +
	"observation, automatically handling different reporting frequencies " +
	"(e.g., monthly vs. annual)."

// ProvenanceDocument is the sidecar artifact recording, per series, the
// metadata captured at normalization time plus run identification.
type ProvenanceDocument struct {
	GeneratedAt    string              `json:"generated_at"`
	RunID          string              `json:"run_id"`
	SeriesMetadata []domain.SeriesMeta `json:"series_metadata"`
	Notes          string              `json:"notes"`
}

// ProvenanceWriter serializes series metadata to the JSON sidecar.
type ProvenanceWriter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewProvenanceWriter creates a provenance writer.
func NewProvenanceWriter(logger *slog.Logger) *ProvenanceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProvenanceWriter{logger: logger, now: time.Now}
}

// Write writes the provenance sidecar for a run.
func (w *ProvenanceWriter) Write(path, runID string, series []domain.Series) error {
	doc := ProvenanceDocument{
		GeneratedAt:    w.now().UTC().Format("2006-01-02T15:04:05Z"),
		RunID:          runID,
		SeriesMetadata: make([]domain.SeriesMeta, 0, len(series)),
		Notes:          provenanceNotes,
	}
	for _, s := range series {
		doc.SeriesMetadata = append(doc.SeriesMetadata, s.Meta)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal provenance document", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write provenance sidecar", err)
	}

	w.logger.Info("provenance sidecar written",
		slog.String("path", path),
		slog.Int("series", len(series)))
	return nil
}
