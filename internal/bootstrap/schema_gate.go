// Package bootstrap refuses to start warehouse writers against a schema that the
// embedded migrations did not produce.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railzwaylabs/salesanalytics/internal/migration"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var (
	ErrSchemaInactive         = errors.New("warehouse schema is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
)

type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db       *gorm.DB
	version  string
	checksum string
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	latest, err := migration.LatestVersion()
	if err != nil {
		return nil, err
	}
	checksum, err := migration.Checksum()
	if err != nil {
		return nil, err
	}
	return &schemaGate{db: db, version: fmt.Sprintf("%d", latest), checksum: checksum}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSchemaState(ctx, g.db)
	if err != nil {
		return err
	}
	if state.Status != migration.StatusActive {
		return fmt.Errorf("%w: status=%s", ErrSchemaInactive, state.Status)
	}
	if state.SchemaVersion != g.version {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, g.version)
	}
	if state.Checksum != nil && strings.TrimSpace(*state.Checksum) != "" && strings.TrimSpace(*state.Checksum) != g.checksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.checksum)
	}
	return nil
}

// EnforceSchemaGate fails application start when the warehouse schema is not active.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				return fmt.Errorf("warehouse schema gate: %w", err)
			}
			return nil
		},
	})
}
