// Package progress persists pollable task status records, backed by SQLite
// for durability or memory for tests.
package progress
