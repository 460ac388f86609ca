package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward-only schema step. Version numbers start at 1 and
// are recorded in PRAGMA user_version.
type Migration struct {
	Version int
	SQL     string
}

// UserVersion returns the schema version stored in the database header.
func UserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: read user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every migration newer than the stored user_version, each in
// its own transaction. It returns the resulting version.
func Migrate(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	current, err := UserVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if m.Version != current+1 {
			return current, fmt.Errorf("sqlite: migration gap: at version %d, next is %d", current, m.Version)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return current, fmt.Errorf("sqlite: begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return current, fmt.Errorf("sqlite: apply migration %d: %w", m.Version, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return current, fmt.Errorf("sqlite: stamp migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return current, fmt.Errorf("sqlite: commit migration %d: %w", m.Version, err)
		}
		current = m.Version
	}

	return current, nil
}
