package scheduler

import (
	"context"
	"fmt"
	"os"

	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func Dial(cfg config.TemporalConfig, log *zap.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    newZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// NewWorker registers the daily sales workflow and its activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, parallelism int, svc domain.Service) worker.Worker {
	if parallelism < 1 {
		parallelism = 1
	}
	w := worker.New(c, taskQueue, worker.Options{
		Identity:                           "salesanalytics-worker-" + hostname(),
		MaxConcurrentActivityExecutionSize: parallelism,
	})
	w.RegisterWorkflow(DailySalesWorkflow)
	w.RegisterActivity(&Activities{Service: svc})
	return w
}

// WorkflowID is deterministic per date span so a repeated trigger of the same span
// attaches to the running workflow instead of starting a second one.
func WorkflowID(in DailySalesInput) string {
	if len(in.Dates) == 0 {
		return "sales-daily-discovered"
	}
	return fmt.Sprintf("sales-daily-%s-%s", in.Dates[0], in.Dates[len(in.Dates)-1])
}

// Trigger starts DailySalesWorkflow for in.
func Trigger(ctx context.Context, c client.Client, taskQueue string, in DailySalesInput) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(in),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, DailySalesWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("start workflow %s: %w", opts.ID, err)
	}
	return run, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
