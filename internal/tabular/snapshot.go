package tabular

import (
	"fmt"
	"strings"
)

// ColumnType is the SQL storage class inferred for a column.
type ColumnType int

const (
	// TypeText holds arbitrary strings.
	TypeText ColumnType = iota
	// TypeInteger holds values that all parse as 64-bit integers.
	TypeInteger
	// TypeReal holds values that all parse as floats.
	TypeReal
)

// String returns the SQLite type name used in CREATE TABLE.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Column is a named, typed column of a Snapshot.
type Column struct {
	Name string
	Type ColumnType
}

// Snapshot is the parsed content of one file at one point in time.
// Row values are int64, float64, string, or nil for an empty cell.
// A Snapshot must not be mutated after it has been returned by a Loader.
type Snapshot struct {
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (s *Snapshot) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}

	return names
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// String summarises the snapshot shape, e.g. "3 rows [id amount]".
func (s *Snapshot) String() string {
	return fmt.Sprintf("%d rows [%s]", len(s.Rows), strings.Join(s.ColumnNames(), " "))
}
