// Package store provides the SQLite database behind spellbook's checks.
//
// A store plays two roles:
//   - Sandbox: CreateTables builds one table per model, Check prepares
//     compiled SQLite statements against them and Exec/Query run them
//   - Statement log: WriteStatement records compiled statements, content
//     addressed by their fingerprint, and ReadStatements lists them
//
// # Statement Log
//
// Statements are append-only. Recording the same fingerprint twice keeps
// the first record (ON CONFLICT DO NOTHING), so replaying a compile run
// leaves the log unchanged. Reads are ordered by seq, never by wall time.
//
// # Database Configuration
//
//   - WAL mode and synchronous=NORMAL for file databases
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - a single connection, so an in-memory sandbox is one database
//
// Fingerprints are computed by spellbook.Result.Fingerprint.
package store
