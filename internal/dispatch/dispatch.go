// Package dispatch filters filesystem notifications down to CSV files and
// routes them to a sync target by kind.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hupe1980/file2sql/internal/logging"
)

// Suffix is the file suffix an event's source path must carry.
const Suffix = ".csv"

// Kind is the type of a filesystem notification.
type Kind int

const (
	// Created reports a new file.
	Created Kind = iota
	// Deleted reports a removed file.
	Deleted
	// Modified reports a write to an existing file.
	Modified
	// Moved reports a rename from Src to Dest.
	Moved
)

// String returns a lowercase name for k.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is a normalised filesystem notification. Dest is set only for Moved.
type Event struct {
	Kind  Kind
	IsDir bool
	Src   string
	Dest  string
}

// Target receives routed events.
type Target interface {
	AddOrUpdate(ctx context.Context, path string) error
	Remove(ctx context.Context, path string) error
}

// Dispatcher routes relevant events to a Target.
type Dispatcher struct {
	target Target
	logger *slog.Logger
}

// New returns a Dispatcher for target. A nil logger discards.
func New(target Target, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Dispatcher{target: target, logger: logger}
}

// Relevant reports whether ev concerns a CSV file.
func Relevant(ev Event) bool {
	return !ev.IsDir && strings.HasSuffix(ev.Src, Suffix)
}

// Dispatch routes ev to the target exactly once. A move adds the destination
// before removing the source; both calls are made and their errors joined.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if !Relevant(ev) {
		logging.Trace(ctx, d.logger, "ignoring event",
			slog.String("kind", ev.Kind.String()),
			slog.String("path", ev.Src),
			slog.Bool("dir", ev.IsDir),
		)

		return nil
	}

	attrs := []any{slog.String("kind", ev.Kind.String()), slog.String("path", ev.Src)}
	if ev.Kind == Moved {
		attrs = append(attrs, slog.String("dest", ev.Dest))
	}

	logging.Trace(ctx, d.logger, "event", attrs...)

	switch ev.Kind {
	case Created, Modified:
		return d.target.AddOrUpdate(ctx, ev.Src)
	case Deleted:
		return d.target.Remove(ctx, ev.Src)
	case Moved:
		addErr := d.target.AddOrUpdate(ctx, ev.Dest)
		return errors.Join(addErr, d.target.Remove(ctx, ev.Src))
	default:
		d.logger.Warn("unknown event kind", slog.Int("kind", int(ev.Kind)), slog.String("path", ev.Src))
		return nil
	}
}
