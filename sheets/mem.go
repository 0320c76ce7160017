package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store used by tests across the repo. Tables must
// be seeded with a header before use, matching how the real spreadsheet tabs
// are pre-created with their header rows.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*MemTable
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*MemTable)}
}

// Seed creates (or replaces) a table with the given header and initial rows.
func (s *MemStore) Seed(collectionID, tab string, header []string, rows ...[]string) *MemTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &MemTable{header: append([]string(nil), header...)}
	for _, r := range rows {
		t.data = append(t.data, append([]string(nil), r...))
	}
	s.tables[collectionID+"/"+tab] = t
	return t
}

// OpenTable returns the seeded table or an error, mirroring the real backend
// failing on a missing tab.
func (s *MemStore) OpenTable(ctx context.Context, collectionID, tab string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[collectionID+"/"+tab]
	if !ok {
		return nil, fmt.Errorf("unknown table %s/%s", collectionID, tab)
	}
	return t, nil
}

// MemTable implements Table over a slice of rows.
type MemTable struct {
	mu     sync.Mutex
	header []string
	data   [][]string
}

func (t *MemTable) Rows(ctx context.Context) ([]Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]Row, 0, len(t.data))
	for i, raw := range t.data {
		values := make(map[string]string, len(t.header))
		for j, col := range t.header {
			if j < len(raw) {
				values[col] = raw[j]
			} else {
				values[col] = ""
			}
		}
		rows = append(rows, Row{Index: i, Columns: t.header, Values: values})
	}
	return rows, nil
}

func (t *MemTable) Append(ctx context.Context, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append(t.data, append([]string(nil), values...))
	return nil
}

func (t *MemTable) UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rowIndex < 0 || rowIndex >= len(t.data) {
		return fmt.Errorf("row %d out of range", rowIndex)
	}
	row := t.data[rowIndex]
	for len(row) <= colIndex {
		row = append(row, "")
	}
	row[colIndex] = value
	t.data[rowIndex] = row
	return nil
}

// Cell returns the raw value at (rowIndex, colIndex), for test assertions.
func (t *MemTable) Cell(rowIndex, colIndex int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rowIndex < 0 || rowIndex >= len(t.data) || colIndex >= len(t.data[rowIndex]) {
		return ""
	}
	return t.data[rowIndex][colIndex]
}

// Len returns the number of data rows, for test assertions.
func (t *MemTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data)
}
