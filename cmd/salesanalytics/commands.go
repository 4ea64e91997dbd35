package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/service"
	"github.com/railzwaylabs/salesanalytics/internal/scheduler"
	"github.com/railzwaylabs/salesanalytics/internal/seed"
	"github.com/railzwaylabs/salesanalytics/internal/watch"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dirFlags struct {
	input  string
	output string
	dryRun bool
}

func (d *dirFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.input, "input", "", "input directory (defaults to input_dir)")
	cmd.Flags().StringVar(&d.output, "output", "", "output directory (defaults to output_dir)")
	cmd.Flags().BoolVar(&d.dryRun, "dry-run", false, "compute without writing artifacts or sinks")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	var (
		date string
		dirs dirFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			var svc domain.Service
			return withApp(ctx, func(ctx context.Context) error {
				result, err := svc.RunForDate(ctx, domain.RunRequest{
					Date:      date,
					InputDir:  dirs.input,
					OutputDir: dirs.output,
					DryRun:    dirs.dryRun,
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			}, fx.Populate(&svc))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to process, YYYY-MM-DD or YYYYMMDD")
	_ = cmd.MarkFlagRequired("date")
	dirs.register(cmd)
	return cmd
}

type rangeOutcome struct {
	Date   string            `json:"date"`
	Result *domain.RunResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func newBackfillCmd() *cobra.Command {
	var (
		start, end string
		dirs       dirFlags
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Process every date in an inclusive range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			var svc domain.Service
			return withApp(ctx, func(ctx context.Context) error {
				outcomes, err := svc.RunRange(ctx, domain.RangeRequest{
					Start:     start,
					End:       end,
					InputDir:  dirs.input,
					OutputDir: dirs.output,
					DryRun:    dirs.dryRun,
				})
				if err != nil && outcomes == nil {
					return err
				}

				out := make([]rangeOutcome, 0, len(outcomes))
				failed := 0
				for _, o := range outcomes {
					item := rangeOutcome{Date: o.Date, Result: o.Result}
					if o.Err != nil {
						item.Error = o.Err.Error()
						failed++
					}
					out = append(out, item)
				}
				if err := printJSON(out); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("backfill: %d of %d dates failed", failed, len(outcomes))
				}
				return err
			}, fx.Populate(&svc))
		},
	}
	cmd.Flags().StringVar(&start, "start-date", "", "first date, inclusive")
	cmd.Flags().StringVar(&end, "end-date", "", "last date, inclusive")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")
	dirs.register(cmd)
	return cmd
}

func newDiscoverCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the dates that have an orders file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return withApp(cmd.Context(), func(ctx context.Context) error {
				dates, err := svc.Discover(ctx, input)
				if err != nil {
					return err
				}
				for _, d := range dates {
					fmt.Println(d)
				}
				return nil
			}, fx.Populate(&svc))
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input directory (defaults to input_dir)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Process a date whenever its orders file lands in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				pipelineModules(),
				fx.Invoke(startWatcher),
			).Run()
			return nil
		},
	}
}

func startWatcher(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, svc domain.Service, log *zap.Logger) {
	w := watch.New(svc, cfg.InputDir, cfg.OutputDir, cfg.Watch.Debounce, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := w.Run(ctx); err != nil {
					log.Error("watcher stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for the daily sales workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				pipelineModules(),
				scheduler.WorkerModule,
			).Run()
			return nil
		},
	}
}

func newTriggerCmd() *cobra.Command {
	var (
		dates      []string
		start, end string
		dirs       dirFlags
		wait       bool
	)
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Start the daily sales workflow on Temporal",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := scheduler.DailySalesInput{
				Dates:     dates,
				InputDir:  dirs.input,
				OutputDir: dirs.output,
				DryRun:    dirs.dryRun,
			}

			var (
				c   client.Client
				cfg config.Config
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				if start != "" || end != "" {
					span, err := expandRange(start, end, cfg.Pipeline.MaxRangeDays)
					if err != nil {
						return err
					}
					in.Dates = span
				}
				if in.InputDir == "" {
					in.InputDir = cfg.InputDir
				}
				if in.OutputDir == "" {
					in.OutputDir = cfg.OutputDir
				}
				run, err := scheduler.Trigger(ctx, c, cfg.Temporal.TaskQueue, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "started workflow %s run %s\n", run.GetID(), run.GetRunID())
				if !wait {
					return nil
				}
				var out scheduler.DailySalesOutput
				if err := run.Get(ctx, &out); err != nil {
					return err
				}
				return printJSON(out)
			}, scheduler.ClientModule, fx.Populate(&c, &cfg))
		},
	}
	cmd.Flags().StringSliceVar(&dates, "dates", nil, "dates to run; empty runs every discovered date")
	cmd.Flags().StringVar(&start, "start-date", "", "first date of a range, inclusive")
	cmd.Flags().StringVar(&end, "end-date", "", "last date of a range, inclusive")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the workflow and print its outcome")
	dirs.register(cmd)
	return cmd
}

func expandRange(start, end string, maxDays int) ([]string, error) {
	if start == "" || end == "" {
		return nil, fmt.Errorf("both --start-date and --end-date are required for a range")
	}
	days, err := service.DateRange(start, end, maxDays)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(domain.DateLayout))
	}
	return out, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the warehouse schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		dir  string
		opts seed.Options
		from string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a deterministic sample batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				start, err := domain.ParseDateKey(from)
				if err != nil {
					return err
				}
				opts.Start = start
			}
			if dir == "" {
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				dir = cfg.InputDir
			}
			paths, err := seed.Write(dir, opts)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(paths, "\n"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (defaults to input_dir)")
	cmd.Flags().StringVar(&from, "start-date", "", "first orders date")
	cmd.Flags().IntVar(&opts.Days, "days", 0, "number of orders files")
	cmd.Flags().IntVar(&opts.OrdersPerDay, "orders-per-day", 0, "orders per file")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().BoolVar(&opts.BadRows, "bad-rows", false, "include malformed rows")
	return cmd
}
