package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/salesanalytics/internal/clock"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/transform"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// Repository implements domain.PartitionSink over gorm.
type Repository struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewRepository(db *gorm.DB, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) *Repository {
	return &Repository{
		db:    db,
		log:   log.Named("warehouse"),
		genID: genID,
		clock: clk,
	}
}

func (r *Repository) Name() string { return "warehouse" }

// ReplacePartition deletes every row of the partition date and inserts p in one
// transaction, so repeated loads of a date leave exactly one copy.
func (r *Repository) ReplacePartition(ctx context.Context, runID string, p domain.Partition) error {
	rows, err := r.buildRows(ctx, runID, p)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range Models() {
			if err := tx.Where("partition_date = ?", p.Date).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		for _, batch := range rows.batches() {
			if err := tx.CreateInBatches(batch, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert %T: %w", batch, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("partition replaced",
		zap.String("date", p.Key()),
		zap.String("run_id", runID),
		zap.Int("product_rows", len(rows.performance)),
		zap.Int("rejected_rows", len(rows.rejected)),
	)
	return nil
}

// Summary loads the stored daily summary of date, or nil when none exists.
func (r *Repository) Summary(ctx context.Context, date time.Time) (*DailyRevenueSummary, error) {
	var row DailyRevenueSummary
	err := r.db.WithContext(ctx).Where("partition_date = ?", date).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type partitionRows struct {
	summaries   []DailyRevenueSummary
	categories  []DailyCategoryRevenue
	performance []ProductPerformance
	lowStock    []LowStockAlert
	rejected    []RejectedRow
}

// batches returns the non-empty row sets; CreateInBatches rejects empty slices.
func (p partitionRows) batches() []any {
	var out []any
	if len(p.summaries) > 0 {
		out = append(out, &p.summaries)
	}
	if len(p.categories) > 0 {
		out = append(out, &p.categories)
	}
	if len(p.performance) > 0 {
		out = append(out, &p.performance)
	}
	if len(p.lowStock) > 0 {
		out = append(out, &p.lowStock)
	}
	if len(p.rejected) > 0 {
		out = append(out, &p.rejected)
	}
	return out
}

func (r *Repository) buildRows(ctx context.Context, runID string, p domain.Partition) (partitionRows, error) {
	now := r.clock.Now(ctx)
	var rows partitionRows

	for _, s := range p.DailyRevenue {
		rows.summaries = append(rows.summaries, DailyRevenueSummary{
			ID:                 r.genID.Generate().Int64(),
			RunID:              runID,
			PartitionDate:      p.Date,
			TotalRevenue:       s.TotalRevenue.Decimal,
			TopCategory:        s.TopCategory,
			TopCategoryRevenue: s.TopCategoryRevenue.Decimal,
			LoadedAt:           now,
		})
	}
	for i, c := range p.CategoryRevenue {
		rows.categories = append(rows.categories, DailyCategoryRevenue{
			ID:            r.genID.Generate().Int64(),
			RunID:         runID,
			PartitionDate: p.Date,
			Category:      c.Category,
			Revenue:       c.Revenue.Decimal,
			TotalUnits:    c.Units,
			CategoryRank:  i + 1,
			LoadedAt:      now,
		})
	}
	for _, pp := range p.ProductPerformance {
		rows.performance = append(rows.performance, ProductPerformance{
			ID:                   r.genID.Generate().Int64(),
			RunID:                runID,
			PartitionDate:        p.Date,
			ProductID:            pp.ProductID,
			ProductName:          pp.ProductName,
			Category:             pp.Category,
			TotalUnitsTransacted: pp.TotalUnitsTransacted,
			UnitsSold:            pp.UnitsSold,
			UnitsReturned:        pp.UnitsReturned,
			RevenueCompleted:     pp.RevenueCompleted.Decimal,
			RevenueReturned:      pp.RevenueReturned.Decimal,
			ReturnRatePercent:    pp.ReturnRatePercent.Decimal,
			LoadedAt:             now,
		})
	}
	for _, a := range p.LowStock {
		rows.lowStock = append(rows.lowStock, LowStockAlert{
			ID:              r.genID.Generate().Int64(),
			RunID:           runID,
			PartitionDate:   p.Date,
			ProductID:       a.ProductID,
			ProductName:     a.ProductName,
			WarehouseID:     a.WarehouseID,
			StockOnHand:     a.StockOnHand,
			LastRestockDate: transform.DateKey(a.LastRestockDate),
			LoadedAt:        now,
		})
	}
	for _, rej := range p.Rejections {
		record, err := json.Marshal(rej.Record)
		if err != nil {
			return rows, fmt.Errorf("encode rejected record: %w", err)
		}
		rows.rejected = append(rows.rejected, RejectedRow{
			ID:            r.genID.Generate().Int64(),
			RunID:         runID,
			PartitionDate: p.Date,
			Source:        string(rej.Source),
			Line:          rej.Line,
			Record:        datatypes.JSON(record),
			Reason:        rej.Reason,
			LoadedAt:      now,
		})
	}
	return rows, nil
}
