package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// lockKey is the session advisory lock serializing migrators against one database.
const lockKey int64 = 5_310_262_025

var ErrMigrationLocked = errors.New("migration_locked")

type releaseFunc func(ctx context.Context) error

func tryAdvisoryLock(ctx context.Context, db *sql.DB) (releaseFunc, error) {
	if db == nil {
		return nil, errors.New("advisory lock requires database handle")
	}

	// Session locks belong to one connection, so pin it for the lock's lifetime.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockKey).Scan(&locked); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		conn.Close()
		return nil, ErrMigrationLocked
	}

	return func(ctx context.Context) error {
		defer conn.Close()
		var released bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockKey).Scan(&released); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		if !released {
			return errors.New("advisory lock was not held by this session")
		}
		return nil
	}, nil
}
