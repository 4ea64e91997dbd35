package scheduler

import (
	"context"

	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ClientModule provides a Temporal client closed on stop.
var ClientModule = fx.Module("scheduler.client",
	fx.Provide(NewClient),
)

// WorkerModule runs the sales worker for the lifetime of the app.
var WorkerModule = fx.Module("scheduler.worker",
	ClientModule,
	fx.Invoke(RunWorker),
)

func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (client.Client, error) {
	c, err := Dial(cfg.Temporal, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}

type WorkerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     config.Config
	Client  client.Client
	Service domain.Service
	Log     *zap.Logger
}

func RunWorker(p WorkerParams) {
	w := NewWorker(p.Client, p.Cfg.Temporal.TaskQueue, p.Cfg.Pipeline.BackfillParallelism, p.Service)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Log.Info("temporal worker starting", zap.String("task_queue", p.Cfg.Temporal.TaskQueue))
			return w.Start()
		},
		OnStop: func(context.Context) error {
			w.Stop()
			return nil
		},
	})
}

