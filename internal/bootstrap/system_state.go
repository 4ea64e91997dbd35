package bootstrap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/migration"
	"gorm.io/gorm"
)

var ErrSchemaStateNotFound = errors.New("warehouse schema state not found")

type SchemaState struct {
	Status        string     `gorm:"column:status"`
	SchemaVersion string     `gorm:"column:schema_version"`
	Checksum      *string    `gorm:"column:checksum"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
}

func loadSchemaState(ctx context.Context, db *gorm.DB) (*SchemaState, error) {
	var state SchemaState
	result := db.WithContext(ctx).Table(migration.StateTable).
		Select("status, schema_version, checksum, activated_at").
		Where("id = TRUE").
		Limit(1).
		Scan(&state)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrSchemaStateNotFound
	}

	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	return &state, nil
}
