package publish

import (
	"context"

	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("publish",
	fx.Provide(NewPublisher),
)

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) domain.SummaryPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	p := NewKafkaPublisher(NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	return p
}
