// Package exporter writes the pipeline's output artifacts.
//
// CSVWriter writes the merged table as a delimited file with empty fields
// for missing values; every column observed anywhere is retained.
//
// ProvenanceWriter writes the JSON sidecar recording per-series metadata,
// run identification and a note on join/frequency semantics.
//
// AnnualExporter collapses the merged table to one row per year for
// column-typed statistical consumers, dropping all-absent columns and adding
// categorical variables, with a variable-label sidecar.
//
// No artifact is written until the merge and derived-metrics passes have
// fully succeeded; a failed run leaves no partial output behind.
package exporter
