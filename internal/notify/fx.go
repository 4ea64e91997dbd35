package notify

import (
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(NewNotifier),
)

// NewNotifier returns nil when no webhook is configured.
func NewNotifier(cfg config.Config, log *zap.Logger) domain.AlertNotifier {
	if cfg.Slack.WebhookURL == "" {
		return nil
	}
	return NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel, log)
}
