// Package domain contains the record shapes and derived metrics of the daily sales pipeline.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryUnknown is the bucket for orders whose product is missing from the catalog
// or carries an empty category.
const CategoryUnknown = "unknown"

// MaxOrderQty bounds a single order's qty. Unit counters are int64 sums over one batch,
// and at this bound they cannot wrap for any batch that fits in memory.
const MaxOrderQty = 1_000_000_000

// DefaultLowStockThreshold is the stock level below which an inventory row is alerted.
const DefaultLowStockThreshold = 50

// DateLayout is the calendar date layout used for partition keys and summaries.
const DateLayout = "2006-01-02"

type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusReturned  OrderStatus = "returned"
	OrderStatusPending   OrderStatus = "pending"
)

// DefaultOrderStatuses is the closed set accepted when no override is configured.
func DefaultOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusReturned,
		OrderStatusPending,
	}
}

// Source names a raw input.
type Source string

const (
	SourceOrders    Source = "orders"
	SourceProducts  Source = "products"
	SourceInventory Source = "inventory"
)

// RawRow is one data line of a source, keyed by column name.
type RawRow struct {
	Line   int
	Values map[string]string
}

// RawTable is a loaded source before validation.
type RawTable struct {
	Source  Source
	Path    string
	Columns []string
	Rows    []RawRow
}

// HasColumn reports whether the header declares the column.
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

type Order struct {
	OrderID   string
	OrderDate time.Time
	ProductID string
	Qty       int64
	UnitPrice decimal.Decimal
	Status    OrderStatus
}

type Product struct {
	ProductID   string
	ProductName string
	Category    string
}

type InventoryRecord struct {
	ProductID       string
	WarehouseID     string
	StockOnHand     int64
	LastRestockDate time.Time
}

// TransformedOrder is an order with its derived amount and a date-only key.
type TransformedOrder struct {
	Order
	Date        time.Time
	OrderAmount decimal.Decimal
}

// Rejection records a row excluded from aggregation and why.
type Rejection struct {
	Source Source
	Line   int
	Record map[string]string
	Reason string
}

// DailyCategoryRevenue is the full-precision revenue of one category on one date.
type DailyCategoryRevenue struct {
	Date     time.Time
	Category string
	Revenue  decimal.Decimal
	Units    int64
}

// DailyRevenue is the full-precision per-date rollup before presentation.
type DailyRevenue struct {
	Date               time.Time
	TotalRevenue       decimal.Decimal
	TopCategory        string
	TopCategoryRevenue decimal.Decimal
	Categories         []DailyCategoryRevenue
}

// ProductStats is the full-precision per-product rollup before presentation.
type ProductStats struct {
	ProductID        string
	ProductName      *string
	Category         string
	UnitsSold        int64
	UnitsReturned    int64
	RevenueCompleted decimal.Decimal
	RevenueReturned  decimal.Decimal
}

// TotalUnitsTransacted counts units that were either sold or returned.
func (p ProductStats) TotalUnitsTransacted() int64 {
	return p.UnitsSold + p.UnitsReturned
}

// ReturnRatePercent is units_returned / total_units_transacted * 100, unrounded.
// It is zero when nothing was transacted.
func (p ProductStats) ReturnRatePercent() decimal.Decimal {
	total := p.TotalUnitsTransacted()
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(p.UnitsReturned).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), 16)
}

// LowStock is an inventory row under the alert threshold.
type LowStock struct {
	ProductID       string
	ProductName     *string
	WarehouseID     string
	StockOnHand     int64
	LastRestockDate time.Time
}
