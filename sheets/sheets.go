// Package sheets provides the row-store adapter used for all durable state.
// A Store opens named tables inside a spreadsheet-like collection; tables are
// header-addressed row sets with append and single-cell update operations.
// The production backend is Google Sheets; an in-memory backend backs tests.
package sheets

import "context"

// Row is one data row of a table. Values are keyed by column name taken from
// the header row; Columns preserves the header order. Index is the zero-based
// position among data rows (the header row is excluded), which is what
// Table.UpdateCell expects.
type Row struct {
	Index   int
	Columns []string
	Values  map[string]string
}

// Get returns the value of the named column, or "" when absent.
func (r Row) Get(col string) string {
	return r.Values[col]
}

// Table is a handle to one tab of a collection.
type Table interface {
	// Rows reads all data rows. Lookups by user id are linear scans over
	// this; no index is assumed.
	Rows(ctx context.Context) ([]Row, error)
	// Append adds one row with the given ordered values.
	Append(ctx context.Context, values []string) error
	// UpdateCell overwrites a single cell. rowIndex is zero-based over data
	// rows, colIndex zero-based over columns.
	UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error
}

// Store opens tables by (collection, tab) name.
type Store interface {
	OpenTable(ctx context.Context, collectionID, tab string) (Table, error)
}
