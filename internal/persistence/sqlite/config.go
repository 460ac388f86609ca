// Package sqlite opens SQLite databases with the pragmas every store relies on.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

var errEmptyPath = errors.New("sqlite: empty database path")

// Config describes how a database file is opened and pooled.
type Config struct {
	BusyTimeout     time.Duration
	MaxOpenConns    int // 1 serialises writers; larger pools only help WAL readers
	ConnMaxLifetime time.Duration

	// ReadOnly opens the file with mode=ro. The journal and sync pragmas are
	// left out because they write to the database.
	ReadOnly bool
}

// DefaultConfig returns the read-write configuration used by the library store.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Hour,
	}
}

// ReadOnlyConfig returns a single-connection configuration for inspecting an
// existing database.
func ReadOnlyConfig() Config {
	return Config{
		BusyTimeout:  2 * time.Second,
		MaxOpenConns: 1,
		ReadOnly:     true,
	}
}

// DSN returns the modernc.org/sqlite data source name for dbPath. Pragmas are
// part of the DSN so they apply to every pooled connection.
func (c Config) DSN(dbPath string) string {
	var params []string
	if c.ReadOnly {
		params = append(params, "mode=ro")
	}
	params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if !c.ReadOnly {
		params = append(params,
			"_pragma=journal_mode(WAL)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=foreign_keys(ON)",
		)
	}
	return "file:" + dbPath + "?" + strings.Join(params, "&")
}

// Open is OpenContext with a background context.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	return OpenContext(context.Background(), dbPath, cfg)
}

// OpenContext initializes a connection pool for dbPath and pings it. ctx
// bounds the ping only.
func OpenContext(ctx context.Context, dbPath string, cfg Config) (*sql.DB, error) {
	if dbPath == "" {
		return nil, errEmptyPath
	}

	db, err := sql.Open("sqlite", cfg.DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", dbPath, err)
	}
	return db, nil
}
