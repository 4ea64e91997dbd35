package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount already rounded for presentation. It marshals as a JSON number
// with exactly two decimals.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Decimal = d.Round(2)
	return nil
}

// Float64 returns the rounded amount for columnar output.
func (m Money) Float64() float64 {
	return m.InexactFloat64()
}

// DailyRevenueRow is an emitted DailyRevenueSummary row.
type DailyRevenueRow struct {
	Date               time.Time
	TotalRevenue       Money
	TopCategory        *string
	TopCategoryRevenue Money
}

type CategoryRevenueRow struct {
	Date     time.Time
	Category string
	Revenue  Money
	Units    int64
}

type ProductPerformanceRow struct {
	ProductID            string
	ProductName          *string
	Category             string
	TotalUnitsTransacted int64
	UnitsSold            int64
	UnitsReturned        int64
	RevenueCompleted     Money
	RevenueReturned      Money
	ReturnRatePercent    Money
}

type LowStockAlertRow struct {
	ProductID       string
	ProductName     *string
	WarehouseID     string
	StockOnHand     int64
	LastRestockDate time.Time
}

// DailySummary is the compact JSON side-file written per date.
type DailySummary struct {
	Date               string  `json:"date"`
	TotalRevenue       Money   `json:"total_revenue"`
	TopCategory        *string `json:"top_category"`
	TopCategoryRevenue Money   `json:"top_category_revenue"`
}

// Partition is everything produced for one date, ready for the writers and sinks.
type Partition struct {
	Date               time.Time
	DailyRevenue       []DailyRevenueRow
	CategoryRevenue    []CategoryRevenueRow
	ProductPerformance []ProductPerformanceRow
	LowStock           []LowStockAlertRow
	Summary            DailySummary
	Rejections         []Rejection
}

// Key is the partition's YYYY-MM-DD key.
func (p Partition) Key() string {
	return p.Date.Format(DateLayout)
}
