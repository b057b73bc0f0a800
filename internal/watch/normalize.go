package watch

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/file2sql/internal/dispatch"
)

// normalizer turns raw fsnotify events into dispatch events. fsnotify reports
// a rename as Rename(old) followed by Create(new) with nothing linking the
// two, so a Rename is held until the next event decides what it was.
type normalizer struct {
	pending    string
	hasPending bool
	isDir      func(path string) bool
}

func newNormalizer() *normalizer {
	return &normalizer{isDir: statIsDir}
}

// feed converts ev. It may return events for an earlier held rename ahead of
// the events for ev itself. held reports whether ev started a new hold.
func (n *normalizer) feed(ev fsnotify.Event) (out []dispatch.Event, held bool) {
	switch {
	case ev.Has(fsnotify.Rename):
		out = n.flush()
		n.pending, n.hasPending = ev.Name, true

		return out, true

	case ev.Has(fsnotify.Create):
		dir := n.isDir(ev.Name)

		if n.hasPending {
			src := n.pending
			n.pending, n.hasPending = "", false

			if !dir && isCSV(src) && isCSV(ev.Name) {
				return []dispatch.Event{{Kind: dispatch.Moved, Src: src, Dest: ev.Name}}, false
			}

			out = append(out, dispatch.Event{Kind: dispatch.Deleted, Src: src})
		}

		return append(out, dispatch.Event{Kind: dispatch.Created, IsDir: dir, Src: ev.Name}), false

	case ev.Has(fsnotify.Write):
		return append(n.flush(), dispatch.Event{Kind: dispatch.Modified, Src: ev.Name}), false

	case ev.Has(fsnotify.Remove):
		return append(n.flush(), dispatch.Event{Kind: dispatch.Deleted, Src: ev.Name}), false
	}

	// Chmod and empty ops carry no content change.
	return nil, false
}

// flush resolves a held rename as a move out of the watched tree.
func (n *normalizer) flush() []dispatch.Event {
	if !n.hasPending {
		return nil
	}

	src := n.pending
	n.pending, n.hasPending = "", false

	return []dispatch.Event{{Kind: dispatch.Deleted, Src: src}}
}

func isCSV(path string) bool {
	return strings.HasSuffix(path, dispatch.Suffix)
}

func statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
