//go:build cgo_sqlite

package db

import (
	_ "github.com/mattn/go-sqlite3"
)

// CGO SQLite driver, selected with -tags cgo_sqlite.
const driverName = "sqlite3"

// dataSourceName renders a DSN for the mattn driver with the same
// pragma set as the default driver.
func dataSourceName(path string) string {
	return "file:" + path +
		"?_foreign_keys=1" +
		"&_journal_mode=WAL" +
		"&_synchronous=NORMAL" +
		"&_busy_timeout=5000"
}
