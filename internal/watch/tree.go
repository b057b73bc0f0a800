package watch

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/file2sql/internal/dispatch"
)

// tree remembers the directories under watch and the CSV paths reported from
// them. A directory that vanishes produces a single event for the directory
// itself, so tree expands it into one Deleted per file it held.
type tree struct {
	dirs  map[string]bool
	files map[string]bool
}

func newTree() *tree {
	return &tree{
		dirs:  make(map[string]bool),
		files: make(map[string]bool),
	}
}

func (t *tree) addDir(dir string) {
	t.dirs[dir] = true
}

// apply records ev and returns the events to queue in its place. gone lists
// the watched directories that disappeared with ev, deepest last.
func (t *tree) apply(ev dispatch.Event) (out []dispatch.Event, gone []string) {
	switch ev.Kind {
	case dispatch.Created, dispatch.Modified:
		if !ev.IsDir && isCSV(ev.Src) {
			t.files[ev.Src] = true
		}

	case dispatch.Moved:
		delete(t.files, ev.Src)
		t.files[ev.Dest] = true

	case dispatch.Deleted:
		delete(t.files, ev.Src)

		if !t.dirs[ev.Src] {
			break
		}

		gone = under(t.dirs, ev.Src)
		for _, d := range gone {
			delete(t.dirs, d)
		}

		for _, f := range under(t.files, ev.Src) {
			delete(t.files, f)
			out = append(out, dispatch.Event{Kind: dispatch.Deleted, Src: f})
		}
	}

	return append(out, ev), gone
}

// under returns the sorted members of set that are dir or lie below it.
func under(set map[string]bool, dir string) []string {
	prefix := dir + string(filepath.Separator)

	var out []string

	for p := range set {
		if p == dir || strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}

	slices.Sort(out)

	return out
}
