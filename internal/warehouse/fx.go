package warehouse

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/salesanalytics/internal/bootstrap"
	"github.com/railzwaylabs/salesanalytics/internal/clock"
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("warehouse",
	fx.Provide(NewDB),
	fx.Provide(NewSink),
)

type DBParams struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// NewDB opens the warehouse, or returns nil when no driver is configured.
func NewDB(p DBParams) (*gorm.DB, error) {
	if p.Cfg.Database.Driver == "" {
		return nil, nil
	}
	db, err := Open(p.Cfg.Database, p.Log)
	if err != nil {
		return nil, err
	}
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

type SinkParams struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	DB    *gorm.DB `optional:"true"`
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

type SinkResult struct {
	fx.Out

	Sinks []domain.PartitionSink `group:"sinks,flatten"`
}

// NewSink contributes the warehouse repository to the sink group. Postgres must be
// migrated beforehand and is checked by the schema gate on start; other dialects are
// auto-migrated.
func NewSink(p SinkParams) (SinkResult, error) {
	if p.DB == nil {
		return SinkResult{}, nil
	}

	if strings.EqualFold(p.Cfg.Database.Driver, DriverPostgres) {
		gate, err := bootstrap.NewSchemaGate(p.DB)
		if err != nil {
			return SinkResult{}, err
		}
		bootstrap.EnforceSchemaGate(p.Lc, gate)
	} else {
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return AutoMigrate(ctx, p.DB)
			},
		})
	}

	repo := NewRepository(p.DB, p.GenID, p.Clock, p.Log)
	return SinkResult{Sinks: []domain.PartitionSink{repo}}, nil
}
