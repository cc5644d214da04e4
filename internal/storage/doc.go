// Package storage persists tasks and the audit trail.
//
// Drivers:
//   - memory: process-local, the default
//   - file: a JSON document {tasks, counter} rewritten atomically, plus an
//     append-only audit JSONL next to it
//   - sqlite: modernc.org/sqlite, single writer, WAL
//
// Task ids come from a monotonic counter and are never reused, even after a
// delete.
package storage
