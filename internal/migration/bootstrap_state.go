package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StateTable records which migration set a database was last activated with.
const StateTable = "warehouse_schema_state"

const StatusActive = "active"

func activateSchemaState(ctx context.Context, db *sql.DB, version uint, checksum string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+StateTable+` (id, status, schema_version, checksum, activated_at, created_at)
		VALUES (TRUE, $1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    activated_at = EXCLUDED.activated_at
	`, StatusActive, fmt.Sprintf("%d", version), checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("activate schema state: %w", err)
	}
	return nil
}
