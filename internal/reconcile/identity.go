package reconcile

import "strings"

// TableIdentity derives the table name for a file path: the last path
// segment, cut at its first '.'. "dir/a.csv" and "dir/a.b.csv" both map to
// "a", so distinct files can share one table.
func TableIdentity(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	name, _, _ := strings.Cut(base, ".")

	return name
}
