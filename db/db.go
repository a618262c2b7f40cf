// ABOUTME: SQLite connection setup for the local outreach store
// ABOUTME: Creates the parent directory, enables WAL and foreign keys, applies the schema
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens the store at path, creating the file and its parent
// directory on first run, and applies the schema.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: serializes writers and keeps in-memory databases
	// from splitting per connection
	database.SetMaxOpenConns(1)

	if err := InitSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}
