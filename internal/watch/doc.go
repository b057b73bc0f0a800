// Package watch runs a recursive fsnotify subscription over a directory tree
// and feeds normalised events, in arrival order, to a single sync worker
// through a bounded queue. It blocks until cancelled or interrupted.
package watch
