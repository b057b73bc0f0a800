package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/hupe1980/file2sql/internal/dispatch"
)

// Handler consumes normalised events. It is called from a single goroutine.
type Handler interface {
	Dispatch(ctx context.Context, ev dispatch.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev dispatch.Event) error

// Dispatch calls f.
func (f HandlerFunc) Dispatch(ctx context.Context, ev dispatch.Event) error { return f(ctx, ev) }

// Options configures a Session.
type Options struct {
	// Root is the directory watched recursively.
	Root string

	// QueueSize bounds both the fsnotify buffer and the sync queue.
	QueueSize int

	// MoveWindow is how long a rename waits for the matching create.
	MoveWindow time.Duration

	// InitialScan emits a Created event for every CSV file present under
	// Root before live events are processed.
	InitialScan bool

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns the default session options.
func DefaultOptions() Options {
	return Options{
		QueueSize:  1024,
		MoveWindow: 100 * time.Millisecond,
		Logger:     slog.Default(),
		Out:        os.Stderr,
	}
}

// Stats counts events seen by a Session.
type Stats struct {
	Queued    uint64
	Processed uint64
	Failed    uint64
	QueueFull uint64
}

// Session owns one watch subscription and its sync worker.
type Session struct {
	opts    Options
	handler Handler
	logger  *slog.Logger

	// Set by Run and only touched from its goroutine.
	watcher *fsnotify.Watcher
	tree    *tree

	queued    atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	queueFull atomic.Uint64
}

// NewSession returns a Session that delivers events to h.
func NewSession(opts Options, h Handler) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.QueueSize < 1 {
		opts.QueueSize = DefaultOptions().QueueSize
	}

	if opts.MoveWindow <= 0 {
		opts.MoveWindow = DefaultOptions().MoveWindow
	}

	return &Session{
		opts:    opts,
		handler: h,
		logger:  opts.Logger.With(slog.String("session", uuid.NewString())),
	}
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Queued:    s.queued.Load(),
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		QueueFull: s.queueFull.Load(),
	}
}

// Run subscribes to Root and blocks until ctx is cancelled or a SIGINT or
// SIGTERM arrives. On the way out it closes the subscription, lets the
// worker finish the event in flight and drain the queue, and returns nil.
func (s *Session) Run(ctx context.Context) error {
	info, err := os.Stat(s.opts.Root)
	if err != nil {
		return fmt.Errorf("watching directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watching directory: %s is not a directory", s.opts.Root)
	}

	watcher, err := fsnotify.NewBufferedWatcher(uint(s.opts.QueueSize))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	var closeOnce sync.Once
	closeWatcher := func() { closeOnce.Do(func() { _ = watcher.Close() }) }
	defer closeWatcher()

	s.watcher = watcher
	s.tree = newTree()

	if err := addRecursive(watcher, s.opts.Root, s.tree.addDir); err != nil {
		return fmt.Errorf("watching directory: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := make(chan dispatch.Event, s.opts.QueueSize)

	var wg sync.WaitGroup

	wg.Add(1)

	// Sync operations run to completion even after cancellation.
	go s.work(context.WithoutCancel(ctx), queue, &wg)

	fmt.Fprintf(s.opts.Out, "watching %s (queue=%d, move-window=%s)\n",
		s.opts.Root, s.opts.QueueSize, s.opts.MoveWindow)

	if s.opts.InitialScan {
		s.scan(s.opts.Root, queue)
	}

	norm := newNormalizer()
	moveTimer := time.NewTimer(s.opts.MoveWindow)
	moveTimer.Stop()

	defer func() {
		moveTimer.Stop()
		closeWatcher()
		s.emit(queue, norm.flush()...)
		close(queue)
		wg.Wait()

		st := s.Stats()
		s.logger.Info("watch session stopped",
			slog.Uint64("processed", st.Processed),
			slog.Uint64("failed", st.Failed),
		)
	}()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(s.opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			out, held := norm.feed(event)
			if held {
				moveTimer.Reset(s.opts.MoveWindow)
			}

			s.emit(queue, out...)

			for _, ev := range out {
				if ev.Kind == dispatch.Created && ev.IsDir {
					s.watchNewDir(ev.Src, queue)
				}
			}

		case <-moveTimer.C:
			s.emit(queue, norm.flush()...)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			if errors.Is(watchErr, fsnotify.ErrEventOverflow) {
				s.logger.Error("filesystem event buffer overflowed; changes may have been missed",
					slog.Int("buffer", s.opts.QueueSize))

				continue
			}

			s.logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// emit appends events to the queue in order. A Deleted for a watched
// directory is preceded by a Deleted for each CSV file reported under it, and
// the watches on that subtree are dropped.
func (s *Session) emit(queue chan<- dispatch.Event, events ...dispatch.Event) {
	for _, ev := range events {
		out, gone := s.tree.apply(ev)

		for _, dir := range gone {
			if err := s.watcher.Remove(dir); err != nil {
				s.logger.Debug("directory watch already gone", slog.String("path", dir), slog.Any("error", err))
			}
		}

		for _, e := range out {
			s.enqueue(queue, e)
		}
	}
}

// enqueue blocks while the queue is full, which leaves further events in the
// fsnotify buffer until the worker catches up.
func (s *Session) enqueue(queue chan<- dispatch.Event, ev dispatch.Event) {
	select {
	case queue <- ev:
	default:
		s.queueFull.Add(1)
		s.logger.Warn("sync queue full; waiting for worker",
			slog.Int("capacity", cap(queue)),
			slog.String("path", ev.Src),
		)

		queue <- ev
	}

	s.queued.Add(1)
}

func (s *Session) work(ctx context.Context, queue <-chan dispatch.Event, wg *sync.WaitGroup) {
	defer wg.Done()

	for ev := range queue {
		if err := s.handle(ctx, ev); err != nil {
			s.failed.Add(1)
			s.logger.Error("sync failed",
				slog.String("kind", ev.Kind.String()),
				slog.String("path", ev.Src),
				slog.Any("error", err),
			)
		}

		s.processed.Add(1)
	}
}

// handle isolates a single event so that a panic in the handler costs one
// event rather than the worker.
func (s *Session) handle(ctx context.Context, ev dispatch.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return s.handler.Dispatch(ctx, ev)
}

// watchNewDir adds a directory that appeared under Root and reports the CSV
// files it already holds, since they produce no events of their own.
func (s *Session) watchNewDir(dir string, queue chan<- dispatch.Event) {
	if err := addRecursive(s.watcher, dir, s.tree.addDir); err != nil {
		s.logger.Warn("cannot watch new directory", slog.String("path", dir), slog.Any("error", err))
		return
	}

	s.scan(dir, queue)
}

// scan emits Created for every CSV file under root.
func (s *Session) scan(root string, queue chan<- dispatch.Event) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && isCSV(path) {
			s.emit(queue, dispatch.Event{Kind: dispatch.Created, Src: path})
		}

		return nil
	})
	if err != nil {
		s.logger.Warn("scan incomplete", slog.String("root", root), slog.Any("error", err))
	}
}

// addRecursive walks root and adds every directory to the watcher, hidden
// ones included. added, when non-nil, is called for each directory watched.
func addRecursive(watcher *fsnotify.Watcher, root string, added func(dir string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if err := watcher.Add(path); err != nil {
			return err
		}

		if added != nil {
			added(path)
		}

		return nil
	})
}
