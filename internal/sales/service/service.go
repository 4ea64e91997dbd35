package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/observability"
	"github.com/railzwaylabs/salesanalytics/internal/sales/aggregate"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/report"
	"github.com/railzwaylabs/salesanalytics/internal/sales/transform"
	"github.com/railzwaylabs/salesanalytics/internal/sales/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ServiceParam struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	GenID     *snowflake.Node
	Loader    domain.Loader
	Writer    domain.ArtifactWriter
	Sinks     []domain.PartitionSink  `group:"sinks"`
	Guard     domain.RunGuard         `optional:"true"`
	Publisher domain.SummaryPublisher `optional:"true"`
	Notifier  domain.AlertNotifier    `optional:"true"`
	Metrics   *observability.Metrics  `optional:"true"`
	Tracer    trace.TracerProvider    `optional:"true"`
}

type service struct {
	cfg       config.Config
	log       *zap.Logger
	genID     *snowflake.Node
	validator *validation.Validator
	loader    domain.Loader
	writer    domain.ArtifactWriter
	sinks     []domain.PartitionSink
	guard     domain.RunGuard
	publisher domain.SummaryPublisher
	notifier  domain.AlertNotifier
	metrics   *observability.Metrics
	tracer    trace.Tracer
}

func NewService(p ServiceParam) domain.Service {
	tp := p.Tracer
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &service{
		cfg:       p.Cfg,
		log:       p.Log.Named("sales.service"),
		genID:     p.GenID,
		validator: validation.New(p.Cfg.Statuses()),
		loader:    p.Loader,
		writer:    p.Writer,
		sinks:     p.Sinks,
		guard:     p.Guard,
		publisher: p.Publisher,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
		tracer:    tp.Tracer("github.com/railzwaylabs/salesanalytics/internal/sales/service"),
	}
}

func (s *service) RunForDate(ctx context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	start := time.Now()
	result, err := s.runForDate(ctx, req)
	s.metrics.ObserveRun(result, time.Since(start), err)
	if err != nil {
		s.log.Error("run failed",
			zap.String("date", req.Date),
			zap.String("outcome", observability.Outcome(err)),
			zap.Error(err),
		)
		return nil, err
	}
	s.log.Info("run finished",
		zap.String("run_id", result.RunID),
		zap.String("date", result.Date),
		zap.Int("rows_processed", result.RowsProcessed),
		zap.Int("rows_rejected", result.RowsRejected),
		zap.Bool("dry_run", result.DryRun),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *service) runForDate(ctx context.Context, req domain.RunRequest) (_ *domain.RunResult, err error) {
	date, err := domain.ParseDateKey(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDate, req.Date)
	}
	key := date.Format(domain.DateLayout)

	inputDir := firstNonEmpty(req.InputDir, s.cfg.InputDir)
	outputDir := firstNonEmpty(req.OutputDir, s.cfg.OutputDir)
	if inputDir == "" || (outputDir == "" && !req.DryRun) {
		return nil, domain.ErrMissingLocation
	}

	runID := s.genID.Generate().String()
	ctx, span := s.tracer.Start(ctx, "sales.RunForDate", trace.WithAttributes(
		attribute.String("sales.date", key),
		attribute.String("sales.run_id", runID),
		attribute.Bool("sales.dry_run", req.DryRun),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if s.guard != nil {
		release, err := s.guard.Acquire(ctx, key, runID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release run lock", zap.String("date", key), zap.Error(err))
			}
		}()
	}

	batch, err := s.load(ctx, inputDir, date)
	if err != nil {
		return nil, err
	}

	validated, err := s.validate(ctx, batch, date)
	if err != nil {
		return nil, err
	}

	partition, err := s.aggregate(ctx, date, validated)
	if err != nil {
		return nil, err
	}

	result := &domain.RunResult{
		RunID:         runID,
		Date:          key,
		RowsProcessed: validated.orders.Accepted,
		RowsRejected:  validated.orders.Rejected,
		Sources: map[domain.Source]domain.SourceStats{
			domain.SourceOrders:    validated.orders,
			domain.SourceProducts:  validated.products,
			domain.SourceInventory: validated.inventory,
		},
		Summary: partition.Summary,
		DryRun:  req.DryRun,
	}
	if req.DryRun {
		return result, nil
	}

	if result.OutputPaths, err = s.write(ctx, outputDir, partition); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, runID, partition); err != nil {
		return nil, err
	}

	if s.guard != nil {
		if err := s.guard.Record(ctx, *result); err != nil {
			s.log.Warn("record run ledger", zap.String("date", key), zap.Error(err))
		}
	}
	return result, nil
}

type rawBatch struct {
	orders    domain.RawTable
	products  domain.RawTable
	inventory domain.RawTable
}

func (s *service) load(ctx context.Context, inputDir string, date time.Time) (rawBatch, error) {
	ctx, span := s.tracer.Start(ctx, "sales.load")
	defer span.End()

	var batch rawBatch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		batch.orders, err = s.loader.LoadOrders(gctx, inputDir, date)
		return err
	})
	g.Go(func() (err error) {
		batch.products, err = s.loader.LoadProducts(gctx, inputDir)
		return err
	})
	g.Go(func() (err error) {
		batch.inventory, err = s.loader.LoadInventory(gctx, inputDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return rawBatch{}, err
	}
	span.SetAttributes(attribute.Int("sales.order_rows", len(batch.orders.Rows)))
	return batch, nil
}

type validatedBatch struct {
	orders    domain.SourceStats
	products  domain.SourceStats
	inventory domain.SourceStats

	transformed []domain.TransformedOrder
	catalog     *domain.Catalog
	stock       []domain.InventoryRecord
	rejections  []domain.Rejection
}

// validate checks every source before anything is written, so a SchemaError in any of
// them leaves prior output untouched.
func (s *service) validate(ctx context.Context, batch rawBatch, date time.Time) (validatedBatch, error) {
	_, span := s.tracer.Start(ctx, "sales.validate")
	defer span.End()

	orders, err := s.validator.OrdersForDate(batch.orders, date)
	if err != nil {
		return validatedBatch{}, err
	}
	products, err := s.validator.Products(batch.products)
	if err != nil {
		return validatedBatch{}, err
	}
	inventory, err := s.validator.Inventory(batch.inventory)
	if err != nil {
		return validatedBatch{}, err
	}

	var rejections []domain.Rejection
	rejections = append(rejections, orders.Rejected...)
	rejections = append(rejections, products.Rejected...)
	rejections = append(rejections, inventory.Rejected...)

	span.SetAttributes(
		attribute.Int("sales.orders_accepted", len(orders.Accepted)),
		attribute.Int("sales.rows_rejected", len(rejections)),
	)
	return validatedBatch{
		orders:      orders.Stats(),
		products:    products.Stats(),
		inventory:   inventory.Stats(),
		transformed: transform.Orders(orders.Accepted),
		catalog:     domain.NewCatalog(products.Accepted),
		stock:       inventory.Accepted,
		rejections:  rejections,
	}, nil
}

// aggregate runs the aggregators concurrently over the read-only transformed orders.
func (s *service) aggregate(ctx context.Context, date time.Time, v validatedBatch) (domain.Partition, error) {
	ctx, span := s.tracer.Start(ctx, "sales.aggregate")
	defer span.End()

	var (
		revenue  []domain.DailyRevenue
		perf     []domain.ProductStats
		lowStock []domain.LowStock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		revenue = aggregate.Revenue(v.transformed, v.catalog)
		return gctx.Err()
	})
	g.Go(func() error {
		perf = aggregate.Performance(v.transformed, v.catalog)
		return gctx.Err()
	})
	g.Go(func() error {
		lowStock = aggregate.LowStock(v.stock, v.catalog, s.cfg.Pipeline.LowStockThreshold)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.Partition{}, err
	}
	return report.Partition(date, revenue, perf, lowStock, v.rejections), nil
}

func (s *service) write(ctx context.Context, outputDir string, p domain.Partition) ([]domain.OutputFile, error) {
	ctx, span := s.tracer.Start(ctx, "sales.write")
	defer span.End()

	files, err := s.writer.WritePartition(ctx, outputDir, p)
	if err != nil {
		return nil, fmt.Errorf("write partition %s: %w", p.Key(), err)
	}
	span.SetAttributes(attribute.Int("sales.files", len(files)))
	return files, nil
}

// deliver hands the partition to every sink. Sink failures fail the run so the caller
// can retry it; the event and the alert are best effort.
func (s *service) deliver(ctx context.Context, runID string, p domain.Partition) error {
	ctx, span := s.tracer.Start(ctx, "sales.deliver")
	defer span.End()

	for _, sink := range s.sinks {
		if sink == nil {
			continue
		}
		if err := sink.ReplacePartition(ctx, runID, p); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSummary(ctx, runID, p.Summary); err != nil {
			s.log.Warn("publish summary", zap.String("date", p.Key()), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyLowStock(ctx, p.Key(), p.LowStock); err != nil {
			s.log.Warn("notify low stock", zap.String("date", p.Key()), zap.Error(err))
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
