// Package loader reads TR_J1 report files into domain.TabularRecord values.
//
// CSV, TSV and XLSX inputs are supported. The metadata block above the
// column header (13 rows in COUNTER 5 exports) is skipped; when the header is
// not where it is expected the first row naming Title and Metric_Type is
// used instead. Reports come from a local directory or an S3 bucket through
// the Source interface, and batches are read concurrently with a bounded
// errgroup.
package loader
