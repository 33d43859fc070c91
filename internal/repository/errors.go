// Package repository implements the durable MySQL store behind the
// reservation engine.  Each repository owns one table and exposes
// Tx-suffixed methods that run inside a caller-provided transaction; the
// GridStore type composes them into the atomic multi-table operations the
// store.Store contract requires.  All timestamps are stored and compared
// in UTC.
package repository

import "time"

// sqlTime formats a time the way the schema's DATETIME columns expect.
func sqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
