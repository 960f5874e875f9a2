// Package store defines the AssetStore collaborator the sync engine talks
// to, and provides a SQLite-backed implementation of it.
//
// An AssetStore holds typed entities addressed two ways:
//   - by instance-local id (Get), assigned by the store on Create
//   - by the portable (type, path, site) triple (Find)
//
// The triple is unique per store. The root container "/" of every site is
// implicit: it is never stored, Find reports it as ErrNotFound, and its
// children need no parent row.
//
// # SQLite layout
//
// One table, entities, keyed by id with UNIQUE(type, path, site). The full
// entity is kept as canonical JSON in body; identity columns are
// duplicated for lookup. Children are listed in creation order
// (ORDER BY seq ASC, id ASC COLLATE BINARY), so traversal is deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
