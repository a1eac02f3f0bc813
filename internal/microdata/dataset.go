// Package microdata loads individual-record survey data and aggregates it
// into annual summary indicators compatible with the date-keyed series.
package microdata

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kshedden/datareader"
	"github.com/xuri/excelize/v2"

	apperrors "panelcli/internal/errors"
	"panelcli/pkg/contracts/domain"
)

// Dataset is a column-oriented view of a microdata file: one row per
// individual respondent, one float column per variable with a parallel
// missing mask.
type Dataset struct {
	columns []string
	data    map[string][]float64
	missing map[string][]bool
	rows    int
}

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string {
	return d.columns
}

// Rows returns the number of records in the dataset.
func (d *Dataset) Rows() int {
	return d.rows
}

// Column returns the values and missing mask for a column. The last return
// is false when the column does not exist.
func (d *Dataset) Column(name string) ([]float64, []bool, bool) {
	values, ok := d.data[name]
	if !ok {
		return nil, nil, false
	}
	return values, d.missing[name], true
}

// Resolve returns the first alias that names an existing column. This is
// resolved once before aggregation so the hot path never probes by name.
func (d *Dataset) Resolve(aliases []string) (string, bool) {
	for _, alias := range aliases {
		if _, ok := d.data[alias]; ok {
			return alias, true
		}
	}
	return "", false
}

func (d *Dataset) addColumn(name string, values []float64, missing []bool) {
	if _, exists := d.data[name]; exists {
		return
	}
	d.columns = append(d.columns, name)
	d.data[name] = values
	d.missing[name] = missing
}

func newDataset() *Dataset {
	return &Dataset{
		data:    make(map[string][]float64),
		missing: make(map[string][]bool),
	}
}

// Open reads a microdata file, dispatching on extension. Stata .dta files,
// delimited .csv files and .xlsx workbooks are supported.
func Open(path string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dta":
		return readStata(path, logger)
	case ".csv":
		return readCSV(path, logger)
	case ".xlsx":
		return readXLSX(path, logger)
	default:
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("unsupported microdata format %q", filepath.Ext(path)), nil)
	}
}

// readStata loads a Stata .dta file. Columns that are neither numeric nor
// numeric-looking strings are skipped; they cannot feed any indicator.
func readStata(path string, logger *slog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open microdata file", err)
	}
	defer f.Close()

	rdr, err := datareader.NewStataReader(f)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read Stata file header", err)
	}

	series, err := rdr.Read(-1)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read Stata records", err)
	}

	ds := newDataset()
	for _, ser := range series {
		name := ser.Name

		values, missing, err := ser.AsFloat64Slice()
		if err == nil {
			ds.addColumn(name, values, normalizeMask(missing, len(values)))
			continue
		}

		tokens, missing, serr := ser.AsStringSlice()
		if serr != nil {
			logger.Warn("skipping non-numeric microdata column",
				slog.String("column", name))
			continue
		}
		floats, mask := parseTokenColumn(tokens, normalizeMask(missing, len(tokens)))
		ds.addColumn(name, floats, mask)
	}

	ds.rows = datasetRowCount(ds)
	logger.Info("loaded microdata",
		slog.String("path", path),
		slog.Int("records", ds.rows),
		slog.Int("columns", len(ds.columns)))
	return ds, nil
}

// readCSV loads a delimited microdata file with a header row.
func readCSV(path string, logger *slog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open microdata file", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read microdata CSV", err)
	}

	return datasetFromRows(rows, path, logger)
}

// readXLSX loads the first sheet of a workbook as a header-plus-records
// table.
func readXLSX(path string, logger *slog.Logger) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open microdata workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read workbook rows", err)
	}

	return datasetFromRows(rows, path, logger)
}

func datasetFromRows(rows [][]string, path string, logger *slog.Logger) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("microdata file is empty", nil)
	}

	header := rows[0]
	records := rows[1:]

	ds := newDataset()
	for col, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tokens := make([]string, len(records))
		for i, row := range records {
			if col < len(row) {
				tokens[i] = row[col]
			}
		}
		values, mask := parseTokenColumn(tokens, nil)
		ds.addColumn(name, values, mask)
	}

	ds.rows = len(records)
	logger.Info("loaded microdata",
		slog.String("path", path),
		slog.Int("records", ds.rows),
		slog.Int("columns", len(ds.columns)))
	return ds, nil
}

// parseTokenColumn parses string tokens into floats with a missing mask. A
// pre-existing mask (from the Stata reader) is respected and extended.
func parseTokenColumn(tokens []string, missing []bool) ([]float64, []bool) {
	values := make([]float64, len(tokens))
	mask := make([]bool, len(tokens))
	for i, token := range tokens {
		if missing != nil && missing[i] {
			values[i] = domain.Missing()
			mask[i] = true
			continue
		}
		token = strings.TrimSpace(token)
		if token == "" || token == "." || token == "NA" {
			values[i] = domain.Missing()
			mask[i] = true
			continue
		}
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			values[i] = domain.Missing()
			mask[i] = true
			continue
		}
		values[i] = v
	}
	return values, mask
}

// normalizeMask guarantees a mask of the right length; some readers return
// nil when no value is missing.
func normalizeMask(mask []bool, n int) []bool {
	if mask == nil {
		return make([]bool, n)
	}
	return mask
}

func datasetRowCount(ds *Dataset) int {
	for _, name := range ds.columns {
		return len(ds.data[name])
	}
	return 0
}
