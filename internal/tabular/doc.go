// Package tabular loads CSV files into immutable in-memory snapshots.
//
// Load never fails for the two expected transient states of a watched file:
// a file that has vanished ([StatusNotFound]) and a file that exists but has
// no content yet ([StatusEmpty]). Both are reported through [Result] so that
// callers branch on them explicitly.
package tabular
