// Package exporter writes analysis reports as downloadable files.
//
// A report is first flattened into named tables (Files, Periods,
// Distribution, Trend, Cost). The CSV writer emits the long-form
// distribution table with a UTF-8 BOM for Excel; the workbook writer puts
// every table on its own sheet.
//
// Example usage:
//
//	exp := exporter.New(files.NewManager("data/exports", logger), logger)
//	path, err := exp.Save(report, exporter.FormatXLSX)
package exporter
