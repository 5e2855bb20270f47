// Package service implements the inventory facade used by the HTTP
// handlers and the CLI.
//
// Inventory wires the class cache, the unique value index, the schema
// manager, the containment rule engine and the business object store around
// one graph store. Each exported method is one logical operation and runs in
// its own transaction: reads in a transaction that is always rolled back,
// writes in one that commits on success and rolls back on any error, so a
// failed operation leaves neither the store nor the in-memory caches
// changed.
//
// # Event System
//
// Write operations publish events via EventBus once their transaction has
// committed. A rolled back operation publishes nothing. Slow subscribers
// miss events rather than block writers.
//
// # Data Models
//
// Startup materializes the dummy root, applies the configured data model
// and loads the unique index. ImportDataModel and ExportDataModel move data
// model documents in and out of a running store.
package service
