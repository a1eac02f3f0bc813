package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	apperrors "panelcli/internal/errors"
	"panelcli/internal/normalize"
	"panelcli/pkg/contracts/domain"
)

// CSVWriter writes merged tables as delimited artifacts. Missing values are
// written as empty fields; dates use the ISO calendar format. All-absent
// columns are retained here: the delimited table is the untyped full record.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteMergedTable writes the merged table to path with the header
// date, year, <col1>, <col1>_PCT_CHANGE, ... in series-insertion order.
func (w *CSVWriter) WriteMergedTable(path string, table *domain.MergedTable) error {
	w.logger.Info("writing merged table",
		slog.String("path", path),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create merged table file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"date", "year"}, table.Columns...)
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("failed to write CSV header row", err)
	}

	for i, row := range table.Rows {
		record := make([]string, 0, len(header))
		if row.HasDate() {
			record = append(record, row.Date.Format(normalize.DateFormat))
		} else {
			record = append(record, "")
		}
		record = append(record, strconv.Itoa(row.Year))

		for _, column := range table.Columns {
			record = append(record, formatValue(row.Value(column)))
		}

		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write CSV row %d", i), err)
		}
	}

	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush merged table file", err)
	}

	w.logger.Info("merged table written", slog.String("path", path))
	return nil
}
