package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"panelcli/internal/microdata"
	"panelcli/pkg/contracts/domain"
)

// aggregates reduces a survey microdata file to annual indicator aggregates
// and writes them as a standalone CSV, without running the full pipeline.
func main() {
	inPath := flag.String("in", "", "input microdata file (.dta, .csv or .xlsx)")
	outPath := flag.String("out", "survey_annual_aggregates.csv", "output CSV file")
	yearAliases := flag.String("year-columns", "YEAR,year,Year", "comma-separated ordered list of accepted year column names")
	flag.Parse()

	if *inPath == "" {
		slog.Error("Missing required -in flag")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	logger := slog.Default()

	ds, err := microdata.Open(*inPath, logger)
	if err != nil {
		slog.Error("Failed to load microdata", "path", *inPath, "error", err)
		os.Exit(1)
	}

	agg := microdata.NewAggregator(logger, strings.Split(*yearAliases, ","), microdata.DefaultRules())
	table, err := agg.Aggregate(ctx, ds)
	if err != nil {
		slog.Error("Aggregation failed", "path", *inPath, "error", err)
		os.Exit(1)
	}

	if err := writeAggregates(*outPath, table); err != nil {
		slog.Error("Failed to write aggregates", "path", *outPath, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d years to %s\n", table.Len(), *outPath)
}

func writeAggregates(path string, table *domain.AnnualTable) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"year"}, table.Indicators...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, year := range table.Years() {
		record := []string{strconv.Itoa(year)}
		for _, indicator := range table.Indicators {
			v, ok := table.Value(year, indicator)
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
