package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/salesanalytics/internal/clock"
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/migration"
	"github.com/railzwaylabs/salesanalytics/internal/notify"
	"github.com/railzwaylabs/salesanalytics/internal/observability"
	"github.com/railzwaylabs/salesanalytics/internal/publish"
	"github.com/railzwaylabs/salesanalytics/internal/redis"
	"github.com/railzwaylabs/salesanalytics/internal/runlock"
	"github.com/railzwaylabs/salesanalytics/internal/sales"
	"github.com/railzwaylabs/salesanalytics/internal/server"
	"github.com/railzwaylabs/salesanalytics/internal/warehouse"
	"github.com/railzwaylabs/salesanalytics/internal/writer"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "salesanalytics",
		Short:         "Daily sales analytics pipeline",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv(config.FileEnv, configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	root.AddCommand(
		newRunCmd(),
		newBackfillCmd(),
		newDiscoverCmd(),
		newServeCmd(),
		newWatchCmd(),
		newWorkerCmd(),
		newTriggerCmd(),
		newMigrateCmd(),
		newSeedCmd(),
	)
	return root
}

// pipelineModules wires the sales service and every collaborator it can use.
func pipelineModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		fx.Provide(registerSnowflake),
		clock.Module,
		loader.Module,
		writer.Module,
		warehouse.Module,
		redis.Module,
		runlock.Module,
		publish.Module,
		notify.Module,
		sales.Module,
	)
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Pipeline.NodeID)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

// withApp starts a short-lived app, hands the populated targets to fn and stops the app.
func withApp(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	app := fx.New(append([]fx.Option{pipelineModules()}, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrate() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "" {
		return fmt.Errorf("migrate: database.driver is not configured")
	}

	opts := []fx.Option{
		fx.Supply(cfg),
		observability.Module,
		fx.NopLogger,
		fx.Provide(warehouse.NewDB),
	}
	if strings.EqualFold(cfg.Database.Driver, warehouse.DriverPostgres) {
		opts = append(opts, migration.Module)
	} else {
		opts = append(opts, fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB) {
			lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
				return warehouse.AutoMigrate(ctx, db)
			}})
		}))
	}
	app := fx.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	fx.New(
		pipelineModules(),
		server.Module,
	).Run()
}
