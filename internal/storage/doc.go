// Package storage persists lockup/event records and their append-only alert
// logs. Two drivers are available: "sqlite" (default) and "file" (JSON Lines
// rows, useful for tests and spreadsheet-style exports).
//
// Reads are best-effort: malformed stored rows are skipped rather than
// aborting a whole scan. Writes never retry; errors propagate to the caller.
package storage
