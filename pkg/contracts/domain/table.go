package domain

import "strconv"

// CellKind tells which scalar a Cell carries.
type CellKind int

const (
	CellMissing CellKind = iota
	CellString
	CellNumber
)

// Cell is one scalar of a loaded table: a string, a number, or a missing marker.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number float64  `json:"number,omitempty"`
}

// Missing returns the missing-value marker.
func Missing() Cell { return Cell{Kind: CellMissing} }

// Text returns a string cell.
func Text(s string) Cell { return Cell{Kind: CellString, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// IsMissing reports whether the cell carries no value.
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// String renders the cell as text. Missing cells render empty.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Column is a named column of a TabularRecord. Name is unique within the
// record; Label keeps the header text as written when the loader had to
// rename a repeated header. Month columns are recognised from Header().
type Column struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// Header returns the header text as it appeared in the report.
func (c Column) Header() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// TabularRecord is one loaded report: ordered named columns and ordered rows,
// each row mapping a column name to a scalar. Produced by the tabular loader
// and treated as read-only by everything downstream.
type TabularRecord struct {
	Name    string            `json:"name" validate:"required"`
	Columns []Column          `json:"columns"`
	Rows    []map[string]Cell `json:"rows"`
}

// ColumnNames returns the column names in order.
func (r TabularRecord) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (r TabularRecord) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Cell returns the cell of row i under column name; absent entries are missing.
func (r TabularRecord) Cell(i int, name string) Cell {
	if i < 0 || i >= len(r.Rows) {
		return Missing()
	}
	c, ok := r.Rows[i][name]
	if !ok {
		return Missing()
	}
	return c
}
