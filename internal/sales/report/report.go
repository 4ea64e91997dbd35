// Package report turns full-precision aggregates into presented output rows.
// It is the only place amounts are rounded.
package report

import (
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
)

func DailyRevenue(rows []domain.DailyRevenue) []domain.DailyRevenueRow {
	out := make([]domain.DailyRevenueRow, 0, len(rows))
	for _, r := range rows {
		top := r.TopCategory
		out = append(out, domain.DailyRevenueRow{
			Date:               r.Date,
			TotalRevenue:       domain.NewMoney(r.TotalRevenue),
			TopCategory:        &top,
			TopCategoryRevenue: domain.NewMoney(r.TopCategoryRevenue),
		})
	}
	return out
}

// CategoryRevenue flattens the ranked categories of every date.
func CategoryRevenue(rows []domain.DailyRevenue) []domain.CategoryRevenueRow {
	var out []domain.CategoryRevenueRow
	for _, r := range rows {
		for _, c := range r.Categories {
			out = append(out, domain.CategoryRevenueRow{
				Date:     c.Date,
				Category: c.Category,
				Revenue:  domain.NewMoney(c.Revenue),
				Units:    c.Units,
			})
		}
	}
	return out
}

func ProductPerformance(rows []domain.ProductStats) []domain.ProductPerformanceRow {
	out := make([]domain.ProductPerformanceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ProductPerformanceRow{
			ProductID:            r.ProductID,
			ProductName:          r.ProductName,
			Category:             r.Category,
			TotalUnitsTransacted: r.TotalUnitsTransacted(),
			UnitsSold:            r.UnitsSold,
			UnitsReturned:        r.UnitsReturned,
			RevenueCompleted:     domain.NewMoney(r.RevenueCompleted),
			RevenueReturned:      domain.NewMoney(r.RevenueReturned),
			ReturnRatePercent:    domain.NewMoney(r.ReturnRatePercent()),
		})
	}
	return out
}

func LowStock(rows []domain.LowStock) []domain.LowStockAlertRow {
	out := make([]domain.LowStockAlertRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LowStockAlertRow(r))
	}
	return out
}

// Summary builds the JSON side-file for date. A date without revenue gets a null top
// category and zero amounts.
func Summary(date time.Time, rows []domain.DailyRevenue) domain.DailySummary {
	summary := domain.DailySummary{
		Date:               date.Format(domain.DateLayout),
		TotalRevenue:       domain.NewMoney(decimal.Zero),
		TopCategoryRevenue: domain.NewMoney(decimal.Zero),
	}
	for _, r := range rows {
		if !r.Date.Equal(date) {
			continue
		}
		top := r.TopCategory
		summary.TotalRevenue = domain.NewMoney(r.TotalRevenue)
		summary.TopCategory = &top
		summary.TopCategoryRevenue = domain.NewMoney(r.TopCategoryRevenue)
	}
	return summary
}

// Partition presents every output of one date.
func Partition(date time.Time, revenue []domain.DailyRevenue, perf []domain.ProductStats, lowStock []domain.LowStock, rejections []domain.Rejection) domain.Partition {
	return domain.Partition{
		Date:               date,
		DailyRevenue:       DailyRevenue(revenue),
		CategoryRevenue:    CategoryRevenue(revenue),
		ProductPerformance: ProductPerformance(perf),
		LowStock:           LowStock(lowStock),
		Summary:            Summary(date, revenue),
		Rejections:         rejections,
	}
}
