// Package store provides SQLite-backed history of compilations.
//
// Each successful compilation of a notebook is stored with:
//   - Compilations: one row per run, identified by a UUIDv7
//   - Records: the token dictionary, one row per key, in key order
//   - Tokens: the token table derived from the records
//
// A compilation whose records digest equals the latest one stored for the
// same notebook is not stored again.
//
// # Ordering
//
//   - Compilations are ordered by seq INTEGER (logical counter), never by
//     timestamps. created_at is informational only.
//   - Queries include ORDER BY seq ASC, id ASC COLLATE BINARY, or
//     ORDER BY position ASC within a compilation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Digests and record hashes are computed in internal/ir using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store
