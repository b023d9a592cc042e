package exporter

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/usage"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatXLSX):
		return FormatXLSX, nil
	case string(FormatCSV):
		return FormatCSV, nil
	}
	return "", apierrors.NewUnsupportedFormatError(s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// formatCount renders a usage count without trailing zeros.
func formatCount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatMoney renders an optional amount with exactly two decimals.
func formatMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return usage.FormatCost(*d)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
