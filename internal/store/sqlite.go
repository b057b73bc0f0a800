package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/hupe1980/file2sql/internal/tabular"
)

var (
	// ErrTableNotFound is returned by DropTable for a table the store does
	// not hold.
	ErrTableNotFound = errors.New("table not found")

	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite.
	ErrUnsupportedDriver = errors.New("unsupported store driver")

	// ErrInvalidTableName is returned for an empty table name.
	ErrInvalidTableName = errors.New("invalid table name")
)

// drivers maps URL driver names to registered database/sql driver names.
var drivers = map[string]string{
	"sqlite": "sqlite",
}

// SQLStore is a relational store backed by database/sql.
type SQLStore struct {
	db  *sql.DB
	url URL
}

// Open connects to the store addressed by rawURL and verifies the connection.
func Open(ctx context.Context, rawURL string) (*SQLStore, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	driverName, ok := drivers[u.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, u.Driver)
	}

	dsn := u.ConnString
	if u.InMemory() {
		dsn = MemoryConnString
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", u, err)
	}

	// One connection for the whole run. For ":memory:" this is what keeps
	// the database alive between operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to store %s: %w", u, err)
	}

	if !u.InMemory() {
		if err := applyPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &SQLStore{db: db, url: u}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}

	return nil
}

// URL returns the address the store was opened with.
func (s *SQLStore) URL() URL {
	return s.url
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

// ReplaceTable drops table name if present and recreates it from snap in a
// single transaction. Nothing of the previous content survives.
func (s *SQLStore) ReplaceTable(ctx context.Context, name string, snap *tabular.Snapshot) error {
	if name == "" {
		return ErrInvalidTableName
	}

	if snap == nil || len(snap.Columns) == 0 {
		return fmt.Errorf("replacing table %q: snapshot has no columns", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replacing table %q: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	table := quoteIdent(name)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("dropping previous table %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(table, snap.Columns)); err != nil {
		return fmt.Errorf("creating table %q: %w", name, err)
	}

	if len(snap.Rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL(table, len(snap.Columns)))
		if err != nil {
			return fmt.Errorf("preparing insert into %q: %w", name, err)
		}
		defer stmt.Close()

		for i, row := range snap.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("inserting row %d into %q: %w", i, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing table %q: %w", name, err)
	}

	return nil
}

// DropTable removes table name. It returns an error wrapping
// ErrTableNotFound when no such table exists.
func (s *SQLStore) DropTable(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidTableName
	}

	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("dropping table %q: %w", name, ErrTableNotFound)
	}

	if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quoteIdent(name)); err != nil {
		return fmt.Errorf("dropping table %q: %w", name, err)
	}

	return nil
}

// TableExists reports whether table name exists. SQLite table names are
// case-insensitive, so the lookup is too.
func (s *SQLStore) TableExists(ctx context.Context, name string) (bool, error) {
	var one int

	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name,
	).Scan(&one)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("looking up table %q: %w", name, err)
	default:
		return true, nil
	}
}

// Tables lists user tables in name order.
func (s *SQLStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}

		names = append(names, n)
	}

	return names, rows.Err()
}

// SelectAll returns every row of table name in rowid order.
func (s *SQLStore) SelectAll(ctx context.Context, name string) ([][]any, error) {
	if name == "" {
		return nil, ErrInvalidTableName
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name)+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("reading table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning table %q: %w", name, err)
		}

		out = append(out, vals)
	}

	return out, rows.Err()
}

func createTableSQL(table string, cols []tabular.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.Name) + " " + c.Type.String()
	}

	return "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")"
}

func insertSQL(table string, n int) string {
	return "INSERT INTO " + table + " VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
