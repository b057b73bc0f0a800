package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/file2sql/internal/tabular"
)

func openMemory(t *testing.T) *SQLStore {
	t.Helper()

	s, err := Open(context.Background(), ComposeURL("sqlite", MemoryConnString))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func ordersSnapshot(rows ...[]any) *tabular.Snapshot {
	return &tabular.Snapshot{
		Columns: []tabular.Column{
			{Name: "id", Type: tabular.TypeInteger},
			{Name: "amount", Type: tabular.TypeReal},
		},
		Rows: rows,
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), ComposeURL("postgres", "host=x"))
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestOpen_MalformedURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed store url")
}

func TestOpen_FileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	s, err := Open(ctx, ComposeURL("sqlite", path))
	require.NoError(t, err)
	require.NoError(t, s.ReplaceTable(ctx, "orders", ordersSnapshot([]any{int64(1), 10.0})))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, ComposeURL("sqlite", path))
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.SelectAll(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), 10.0}}, rows)
}

func TestOpen_MemorySurvivesAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "t", ordersSnapshot()))

	for range 5 {
		ok, err := s.TableExists(ctx, "t")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

// ---------------------------------------------------------------------------
// ReplaceTable
// ---------------------------------------------------------------------------

func TestReplaceTable_FullReplace(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "orders", ordersSnapshot(
		[]any{int64(1), 10.0}, []any{int64(2), 20.0}, []any{int64(3), 30.0},
	)))
	require.NoError(t, s.ReplaceTable(ctx, "orders", ordersSnapshot(
		[]any{int64(9), 99.5},
	)))

	rows, err := s.SelectAll(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(9), 99.5}}, rows)
}

func TestReplaceTable_SchemaChange(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "t", ordersSnapshot([]any{int64(1), 1.0})))
	require.NoError(t, s.ReplaceTable(ctx, "t", &tabular.Snapshot{
		Columns: []tabular.Column{{Name: "name", Type: tabular.TypeText}},
		Rows:    [][]any{{"x"}, {nil}},
	}))

	rows, err := s.SelectAll(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x"}, {nil}}, rows)
}

func TestReplaceTable_QuotedNames(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	snap := &tabular.Snapshot{
		Columns: []tabular.Column{{Name: `we"ird col`, Type: tabular.TypeText}, {Name: "select", Type: tabular.TypeInteger}},
		Rows:    [][]any{{"v", int64(1)}},
	}

	require.NoError(t, s.ReplaceTable(ctx, `my "table"`, snap))

	rows, err := s.SelectAll(ctx, `my "table"`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"v", int64(1)}}, rows)
}

func TestReplaceTable_Invalid(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.ErrorIs(t, s.ReplaceTable(ctx, "", ordersSnapshot()), ErrInvalidTableName)
	require.Error(t, s.ReplaceTable(ctx, "t", &tabular.Snapshot{}))
	require.Error(t, s.ReplaceTable(ctx, "t", nil))
}

func TestReplaceTable_FailureKeepsPreviousContent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "t", ordersSnapshot([]any{int64(1), 1.0})))

	// Row wider than the column list fails mid-transaction.
	err := s.ReplaceTable(ctx, "t", ordersSnapshot([]any{int64(2), 2.0, "extra"}))
	require.Error(t, err)

	rows, err := s.SelectAll(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), 1.0}}, rows)
}

// ---------------------------------------------------------------------------
// DropTable / TableExists / Tables
// ---------------------------------------------------------------------------

func TestDropTable(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "orders", ordersSnapshot()))
	require.NoError(t, s.DropTable(ctx, "orders"))

	ok, err := s.TableExists(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropTable_Missing(t *testing.T) {
	err := openMemory(t).DropTable(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrTableNotFound)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestDropTable_EmptyName(t *testing.T) {
	require.ErrorIs(t, openMemory(t).DropTable(context.Background(), ""), ErrInvalidTableName)
}

func TestTableExists_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.ReplaceTable(ctx, "Orders", ordersSnapshot()))

	ok, err := s.TableExists(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTables(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	names, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.ReplaceTable(ctx, "b", ordersSnapshot()))
	require.NoError(t, s.ReplaceTable(ctx, "a", ordersSnapshot()))

	names, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestSelectAll_Missing(t *testing.T) {
	_, err := openMemory(t).SelectAll(context.Background(), "ghost")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// SQL builders
// ---------------------------------------------------------------------------

func TestSQLBuilders(t *testing.T) {
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
	assert.Equal(t, `INSERT INTO "t" VALUES (?, ?, ?)`, insertSQL(`"t"`, 3))
	assert.Equal(t, `CREATE TABLE "t" ("id" INTEGER, "n" TEXT)`, createTableSQL(`"t"`, []tabular.Column{
		{Name: "id", Type: tabular.TypeInteger},
		{Name: "n", Type: tabular.TypeText},
	}))
}
