package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	return p
}

// ---------------------------------------------------------------------------
// Load — status tags
// ---------------------------------------------------------------------------

func TestLoad_NotFound(t *testing.T) {
	res, err := NewCSVLoader().Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Nil(t, res.Snapshot)
}

func TestLoad_Empty(t *testing.T) {
	for name, content := range map[string]string{
		"zero bytes":  "",
		"blank lines": "\n\n",
		"blank cells": ",,\n",
		"bom only":    "\xEF\xBB\xBF",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := NewCSVLoader().Load(writeCSV(t, "e.csv", content))
			require.NoError(t, err)
			assert.Equal(t, StatusEmpty, res.Status)
			assert.Nil(t, res.Snapshot)
		})
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	res, err := NewCSVLoader().Load(writeCSV(t, "h.csv", "id,amount\n"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []string{"id", "amount"}, res.Snapshot.ColumnNames())
	assert.Equal(t, 0, res.Snapshot.Len())
}

func TestLoad_Directory(t *testing.T) {
	_, err := NewCSVLoader().Load(t.TempDir())
	require.Error(t, err)
}

func TestLoad_TooManyFields(t *testing.T) {
	_, err := NewCSVLoader().Load(writeCSV(t, "bad.csv", "a,b\n1,2\n3,4,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields, saw 3")
}

func TestLoad_BadQuoting(t *testing.T) {
	_, err := NewCSVLoader().Load(writeCSV(t, "bad.csv", "a,b\n\"unterminated,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

// ---------------------------------------------------------------------------
// Load — content
// ---------------------------------------------------------------------------

func TestLoad_TypedRows(t *testing.T) {
	p := writeCSV(t, "orders.csv", "id,amount,note\n1,10,first\n2,12.5,\n3,,third\n")

	res, err := NewCSVLoader().Load(p)
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)

	snap := res.Snapshot
	assert.Equal(t, []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "amount", Type: TypeReal},
		{Name: "note", Type: TypeText},
	}, snap.Columns)

	assert.Equal(t, [][]any{
		{int64(1), 10.0, "first"},
		{int64(2), 12.5, nil},
		{int64(3), nil, "third"},
	}, snap.Rows)
	assert.Equal(t, "3 rows [id amount note]", snap.String())
}

func TestLoad_ShortRowsArePadded(t *testing.T) {
	res, err := NewCSVLoader().Load(writeCSV(t, "s.csv", "a,b,c\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), nil, nil}}, res.Snapshot.Rows)
}

func TestLoad_StripsBOM(t *testing.T) {
	res, err := NewCSVLoader().Load(writeCSV(t, "b.csv", "\xEF\xBB\xBFid\n7\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Snapshot.ColumnNames())
}

func TestLoad_CustomComma(t *testing.T) {
	l := &CSVLoader{Comma: ';'}

	res, err := l.Load(writeCSV(t, "semi.csv", "a;b\nx;2\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x", int64(2)}}, res.Snapshot.Rows)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"plain", []string{"a", "b"}, []string{"a", "b"}},
		{"duplicates", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"clash with suffix", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
		{"blank", []string{"", "x", " "}, []string{"Unnamed: 0", "x", "Unnamed: 2"}},
		{"trimmed", []string{" id "}, []string{"id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, columnNames(tt.header))
		})
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  ColumnType
	}{
		{"ints", []string{"1", "-2", "30"}, TypeInteger},
		{"mixed numeric", []string{"1", "2.5"}, TypeReal},
		{"text wins", []string{"1", "x"}, TypeText},
		{"blanks ignored", []string{"", "4", " "}, TypeInteger},
		{"all blank", []string{"", ""}, TypeText},
		{"no rows", nil, TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([][]string, len(tt.cells))
			for i, c := range tt.cells {
				raw[i] = []string{c}
			}

			assert.Equal(t, tt.want, inferType(raw, 0))
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "not-found", StatusNotFound.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestColumnTypeString(t *testing.T) {
	assert.Equal(t, "INTEGER", TypeInteger.String())
	assert.Equal(t, "REAL", TypeReal.String())
	assert.Equal(t, "TEXT", TypeText.String())
}
