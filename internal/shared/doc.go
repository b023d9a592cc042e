// Package shared holds code used across counterviz packages that belongs to
// no single layer.
//
// testutil provides a capturing slog handler and generators for TR_J1
// report files in CSV, TSV and XLSX form.
package shared
