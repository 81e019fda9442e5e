// Package db is the SQLite persistence layer for the citation store:
// four relations (documents, textparts, elements, tokens) addressed by
// canonical URN, committed one document per transaction.
package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// InitDB applies the embedded schema to the given DB connection. It is
// idempotent and safe to run on every open.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(schemaSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Open opens the store at path, creating and initializing it when
// missing.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open(driverName, dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// OpenInMemory opens a private in-memory store. The connection pool is
// capped at one so every statement sees the same memory database; tests
// and one-shot tooling use this.
func OpenInMemory() (*sql.DB, error) {
	conn, err := sql.Open(driverName, dataSourceName(":memory:"))
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// SchemaVersion reports the version recorded in the meta table.
func SchemaVersion(db DBExecutor) (string, error) {
	var v string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v); err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
