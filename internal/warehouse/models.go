package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DailyRevenueSummary struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID              string          `gorm:"column:run_id;not null"`
	PartitionDate      time.Time       `gorm:"column:partition_date;type:date;not null;uniqueIndex:ux_daily_revenue_summaries_date"`
	TotalRevenue       decimal.Decimal `gorm:"column:total_revenue;type:decimal(38,2);not null"`
	TopCategory        *string         `gorm:"column:top_category"`
	TopCategoryRevenue decimal.Decimal `gorm:"column:top_category_revenue;type:decimal(38,2);not null"`
	LoadedAt           time.Time       `gorm:"column:loaded_at;not null"`
}

func (DailyRevenueSummary) TableName() string { return "daily_revenue_summaries" }

type DailyCategoryRevenue struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID         string          `gorm:"column:run_id;not null"`
	PartitionDate time.Time       `gorm:"column:partition_date;type:date;not null;uniqueIndex:ux_daily_category_revenues_date_category"`
	Category      string          `gorm:"column:category;not null;uniqueIndex:ux_daily_category_revenues_date_category"`
	Revenue       decimal.Decimal `gorm:"column:revenue;type:decimal(38,2);not null"`
	TotalUnits    int64           `gorm:"column:total_units;not null"`
	CategoryRank  int             `gorm:"column:category_rank;not null"`
	LoadedAt      time.Time       `gorm:"column:loaded_at;not null"`
}

func (DailyCategoryRevenue) TableName() string { return "daily_category_revenues" }

type ProductPerformance struct {
	ID                   int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID                string          `gorm:"column:run_id;not null"`
	PartitionDate        time.Time       `gorm:"column:partition_date;type:date;not null;uniqueIndex:ux_product_performance_date_product"`
	ProductID            string          `gorm:"column:product_id;not null;uniqueIndex:ux_product_performance_date_product"`
	ProductName          *string         `gorm:"column:product_name"`
	Category             string          `gorm:"column:category;not null"`
	TotalUnitsTransacted int64           `gorm:"column:total_units_transacted;not null"`
	UnitsSold            int64           `gorm:"column:units_sold;not null"`
	UnitsReturned        int64           `gorm:"column:units_returned;not null"`
	RevenueCompleted     decimal.Decimal `gorm:"column:revenue_completed;type:decimal(38,2);not null"`
	RevenueReturned      decimal.Decimal `gorm:"column:revenue_returned;type:decimal(38,2);not null"`
	ReturnRatePercent    decimal.Decimal `gorm:"column:return_rate_percent;type:decimal(38,2);not null"`
	LoadedAt             time.Time       `gorm:"column:loaded_at;not null"`
}

func (ProductPerformance) TableName() string { return "product_performance" }

type LowStockAlert struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID           string    `gorm:"column:run_id;not null"`
	PartitionDate   time.Time `gorm:"column:partition_date;type:date;not null;index:ix_low_stock_alerts_date"`
	ProductID       string    `gorm:"column:product_id;not null"`
	ProductName     *string   `gorm:"column:product_name"`
	WarehouseID     string    `gorm:"column:warehouse_id;not null"`
	StockOnHand     int64     `gorm:"column:stock_on_hand;not null"`
	LastRestockDate time.Time `gorm:"column:last_restock_date;type:date;not null"`
	LoadedAt        time.Time `gorm:"column:loaded_at;not null"`
}

func (LowStockAlert) TableName() string { return "low_stock_alerts" }

type RejectedRow struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID         string         `gorm:"column:run_id;not null"`
	PartitionDate time.Time      `gorm:"column:partition_date;type:date;not null;index:ix_rejected_rows_date_source"`
	Source        string         `gorm:"column:source;not null;index:ix_rejected_rows_date_source"`
	Line          int            `gorm:"column:line;not null"`
	Record        datatypes.JSON `gorm:"column:record;not null"`
	Reason        string         `gorm:"column:reason;not null"`
	LoadedAt      time.Time      `gorm:"column:loaded_at;not null"`
}

func (RejectedRow) TableName() string { return "rejected_rows" }

// Models lists every table owned by the warehouse sink.
func Models() []any {
	return []any{
		&DailyRevenueSummary{},
		&DailyCategoryRevenue{},
		&ProductPerformance{},
		&LowStockAlert{},
		&RejectedRow{},
	}
}
