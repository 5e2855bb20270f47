// Package repository defines the graph store contract consumed by the
// inventory engine.
//
// # Store and Tx
//
// A Store opens transactions; every logical operation of the engine runs in
// exactly one Tx. A Tx exposes labelled nodes with JSON property bags,
// typed directed edges, indexed lookup by label and property, and a
// multi-hop Traverse used for transitive containment and inheritance
// queries.
//
// # Outcome Hooks
//
// OnCommit and OnRollback let process-wide caches follow the transaction
// outcome: the unique-value index applies its buffered reservations on
// commit and discards them on rollback, and the schema cache drops every
// entry touched by the transaction either way.
//
// # SQLite Implementation
//
// The sqlite subpackage implements Store on modernc.org/sqlite with a
// single writer connection, so concurrent structural mutations are
// serialized by the store itself.
package repository
