// Package reconcile keeps the set of loaded CSV files and the tables of the
// relational store in step.
//
// A [Syncer] owns the tracking map from file path to its last good snapshot.
// It is not safe for concurrent use: exactly one goroutine (the watch
// session's worker) drives it.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hupe1980/file2sql/internal/logging"
	"github.com/hupe1980/file2sql/internal/store"
	"github.com/hupe1980/file2sql/internal/tabular"
)

// Loader reads one file into a tagged result.
type Loader interface {
	Load(path string) (tabular.Result, error)
}

// Store is the relational target.
type Store interface {
	ReplaceTable(ctx context.Context, name string, snap *tabular.Snapshot) error
	DropTable(ctx context.Context, name string) error
	SelectAll(ctx context.Context, name string) ([][]any, error)
	Close() error
}

// Syncer maps tracked files to store tables.
type Syncer struct {
	loader  Loader
	store   Store
	logger  *slog.Logger
	tracked map[string]*tabular.Snapshot
}

// New returns a Syncer with an empty tracking map. A nil logger discards.
func New(loader Loader, st Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Syncer{
		loader:  loader,
		store:   st,
		logger:  logger,
		tracked: make(map[string]*tabular.Snapshot),
	}
}

// AddOrUpdate loads path and, when it yields a snapshot, tracks it and fully
// replaces the corresponding table. A vanished or still-empty file is a
// no-op, as is a file whose name yields an empty table identity. A load error
// leaves any previously tracked snapshot and its table untouched.
func (s *Syncer) AddOrUpdate(ctx context.Context, path string) error {
	table := TableIdentity(path)
	if table == "" {
		s.logger.Warn("skipping file without a table name", slog.String("path", path))
		return nil
	}

	res, err := s.loader.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	switch res.Status {
	case tabular.StatusNotFound, tabular.StatusEmpty:
		s.logger.Debug("skipping file",
			slog.String("path", path),
			slog.String("reason", res.Status.String()),
		)

		return nil
	}

	s.tracked[path] = res.Snapshot

	return s.syncReplace(ctx, path, table)
}

// Remove forgets path and drops its table. Untracked paths are a no-op.
func (s *Syncer) Remove(ctx context.Context, path string) error {
	if _, ok := s.tracked[path]; !ok {
		logging.Trace(ctx, s.logger, "remove of untracked file", slog.String("path", path))
		return nil
	}

	delete(s.tracked, path)

	return s.syncDrop(ctx, TableIdentity(path))
}

// Tracked returns the tracked paths in sorted order.
func (s *Syncer) Tracked() []string {
	paths := make([]string, 0, len(s.tracked))
	for p := range s.tracked {
		paths = append(paths, p)
	}

	slices.Sort(paths)

	return paths
}

// Snapshot returns the tracked snapshot for path, or nil.
func (s *Syncer) Snapshot(path string) *tabular.Snapshot {
	return s.tracked[path]
}

// Close releases the store connection. The tracking map is kept so callers
// can still report on it.
func (s *Syncer) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	return nil
}

func (s *Syncer) syncReplace(ctx context.Context, path, table string) error {
	snap := s.tracked[path]

	if err := s.store.ReplaceTable(ctx, table, snap); err != nil {
		return fmt.Errorf("syncing %s to table %q: %w", path, table, err)
	}

	s.logger.Info("table replaced",
		slog.String("table", table),
		slog.String("path", path),
		slog.Int("rows", snap.Len()),
	)

	// Diagnostic read-back only.
	if !s.logger.Enabled(ctx, logging.LevelTrace) {
		return nil
	}

	rows, err := s.store.SelectAll(ctx, table)
	if err != nil {
		s.logger.Warn("verification read failed", slog.String("table", table), slog.Any("error", err))
		return nil
	}

	logging.Trace(ctx, s.logger, "table content",
		slog.String("table", table),
		slog.Any("rows", rows),
	)

	return nil
}

func (s *Syncer) syncDrop(ctx context.Context, table string) error {
	err := s.store.DropTable(ctx, table)

	switch {
	case errors.Is(err, store.ErrTableNotFound):
		s.logger.Warn("table already absent", slog.String("table", table))
		return nil
	case err != nil:
		return fmt.Errorf("dropping table %q: %w", table, err)
	}

	s.logger.Info("table dropped", slog.String("table", table))

	return nil
}
