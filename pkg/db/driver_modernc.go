//go:build !cgo_sqlite

package db

import (
	_ "modernc.org/sqlite"
)

// The pure-Go SQLite driver is the default so the binary builds without
// a C toolchain. Build with -tags cgo_sqlite for the CGO driver.
const driverName = "sqlite"

// dataSourceName renders a DSN for the modernc driver, enabling the
// pragmas the store relies on: enforced foreign keys, WAL journaling,
// and a busy timeout so concurrent commits wait instead of failing.
func dataSourceName(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
}
