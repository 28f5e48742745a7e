package models

import (
	"fmt"
	"strings"
)

// Row is one record of the inventory store as read by a full-table scan.
// Values keep their driver types: nil for SQL NULL, string for text columns.
type Row []any

// CellString renders the value at position i for matching and export.
// NULL renders as the empty string.
func (r Row) CellString(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	switch v := r[i].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// IsNull reports whether the value at position i is SQL NULL (or out of range).
func (r Row) IsNull(i int) bool {
	return i < 0 || i >= len(r) || r[i] == nil
}

// Snapshot is the in-memory copy of the inventory store taken once at the start
// of a run. The position-to-name mapping is built here, not per record.
type Snapshot struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

func NewSnapshot(columns []string, rows []Row) *Snapshot {
	s := &Snapshot{
		Columns: columns,
		Rows:    rows,
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		key := strings.ToLower(name)
		if _, ok := s.index[key]; !ok {
			s.index[key] = i
		}
	}
	return s
}

// ColumnIndex locates a column by exact name.
func (s *Snapshot) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// ColumnIndexFold locates a column by case-insensitive name.
func (s *Snapshot) ColumnIndexFold(name string) (int, bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return -1, false
	}
	return i, true
}
