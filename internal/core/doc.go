// Package core provides the types shared by every LocaleDB loader.
//
// The package holds no database state. It defines the database interfaces
// the loaders are written against, the dataset and load-state vocabulary,
// and the error taxonomy.
//
// # Load States
//
// Every dataset load walks the same states:
//
//	pending -> extracting -> transforming -> resolving -> loading -> vacuuming -> done
//
// and may move to failed from any non-terminal state. The orchestrator in
// internal/etl enforces the transitions.
//
// # Error Taxonomy
//
//   - [LocaleNotFoundError]: a geographic key matches no locale row.
//   - [LocaleIntegrityError]: a key expected to be unique matches several rows.
//   - [ETLError]: a row-level invariant failed; carries the row ordinal and raw keys.
//   - [PrerequisiteError]: a dependency dataset is not loaded.
//   - [FetchError]: a source could not be downloaded.
//   - [ErrAlreadyLoaded]: an append-only batch is already present. Not a failure.
//
// [MapError] turns any of these into a coded operator message.
package core
