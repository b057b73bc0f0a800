// Package store mirrors tabular snapshots into a relational database.
//
// A store is addressed by a URL composed as driver + ":///" + connstring
// (see [ComposeURL]). The connstring part is handed to the driver verbatim,
// except that an empty value or ":memory:" selects a private in-memory
// database. The store keeps exactly one open connection for its lifetime,
// which keeps an in-memory database alive and serialises all writes.
package store
