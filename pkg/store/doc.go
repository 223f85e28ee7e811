// Package store defines the persistence contract attribute registries are
// persisted through, plus in-memory and SQL implementations.
//
// Responsibilities:
//   - Store only inserts, updates, deletes and loads flat value maps keyed by Ref.
//   - Binding adapts one Store record to the attrs Inserter/Updater/Deleter/Loader
//     collaborators of a single registry.
//   - The attrs package stays persistence-agnostic; everything storage
//     specific lives behind Store implementations.
//
// Data flow:
//
//	attrs.Registry.Persist -> Binding.Inserter/Updater -> Store -> backend
//
// Backends:
//
//	MemoryStore is intended for tests and examples. SQLStore keeps one JSON
//	payload per record in a single table and supports SQLite (modernc.org/sqlite)
//	and Postgres (pgx) through database/sql.
package store
