package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)

func TestSummaryRoundsOnlyAtPresentation(t *testing.T) {
	// Summing pre-rounded thirds would give 0.99.
	third := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(3), 20)
	rev := []domain.DailyRevenue{{
		Date:               day,
		TotalRevenue:       third.Add(third).Add(third),
		TopCategory:        "Toys",
		TopCategoryRevenue: third,
	}}

	summary := Summary(day, rev)
	assert.Equal(t, "2025-10-25", summary.Date)
	assert.Equal(t, "1.00", summary.TotalRevenue.StringFixed(2))
	assert.Equal(t, "0.33", summary.TopCategoryRevenue.StringFixed(2))
	require.NotNil(t, summary.TopCategory)
	assert.Equal(t, "Toys", *summary.TopCategory)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-10-25","total_revenue":1.00,"top_category":"Toys","top_category_revenue":0.33}`, string(data))
	assert.Contains(t, string(data), `"total_revenue":1.00`)
}

func TestSummaryForEmptyDate(t *testing.T) {
	summary := Summary(day, nil)
	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2025-10-25","total_revenue":0.00,"top_category":null,"top_category_revenue":0.00}`, string(data))
}

func TestProductPerformanceRounding(t *testing.T) {
	rows := ProductPerformance([]domain.ProductStats{{
		ProductID:        "P1",
		UnitsSold:        2,
		UnitsReturned:    1,
		RevenueCompleted: decimal.RequireFromString("10.005"),
		RevenueReturned:  decimal.RequireFromString("4.994"),
	}})
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, int64(3), r.TotalUnitsTransacted)
	assert.Equal(t, "10.01", r.RevenueCompleted.StringFixed(2))
	assert.Equal(t, "4.99", r.RevenueReturned.StringFixed(2))
	assert.Equal(t, "33.33", r.ReturnRatePercent.StringFixed(2))
	assert.Nil(t, r.ProductName)
}

func TestPartitionFlattensCategories(t *testing.T) {
	rev := []domain.DailyRevenue{{
		Date:               day,
		TotalRevenue:       decimal.NewFromInt(30),
		TopCategory:        "Home",
		TopCategoryRevenue: decimal.NewFromInt(20),
		Categories: []domain.DailyCategoryRevenue{
			{Date: day, Category: "Home", Revenue: decimal.NewFromInt(20), Units: 4},
			{Date: day, Category: "Toys", Revenue: decimal.NewFromInt(10), Units: 1},
		},
	}}
	p := Partition(day, rev, nil, []domain.LowStock{{ProductID: "P1", WarehouseID: "W1", StockOnHand: 3}}, nil)

	assert.Equal(t, "2025-10-25", p.Key())
	require.Len(t, p.DailyRevenue, 1)
	require.Len(t, p.CategoryRevenue, 2)
	assert.Equal(t, "Toys", p.CategoryRevenue[1].Category)
	assert.Equal(t, int64(4), p.CategoryRevenue[0].Units)
	require.Len(t, p.LowStock, 1)
	assert.Equal(t, int64(3), p.LowStock[0].StockOnHand)
	assert.Empty(t, p.ProductPerformance)
}
