package runlock

import (
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("runlock",
	fx.Provide(NewGuard),
)

type GuardParams struct {
	fx.In

	Cfg    config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *zap.Logger
}

type GuardResult struct {
	fx.Out

	Guard  domain.RunGuard
	Ledger Ledger
}

// NewGuard picks the Redis guard when a client is available and the in-process guard
// otherwise.
func NewGuard(p GuardParams) GuardResult {
	if p.Redis == nil {
		g := NewLocalGuard()
		return GuardResult{Guard: g, Ledger: g}
	}
	g := NewRedisGuard(p.Redis, p.Cfg.Redis.LockTTL, p.Logger)
	return GuardResult{Guard: g, Ledger: g}
}
