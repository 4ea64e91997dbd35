// Package aggregate computes the full-precision daily rollups. Nothing here rounds;
// presentation happens in the report package.
package aggregate

import (
	"sort"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
)

type categoryKey struct {
	date     time.Time
	category string
}

// Revenue groups orders by (date, category) and ranks categories within each date.
// One DailyRevenue is returned per distinct date, ascending. Categories are ordered by
// revenue descending with ties broken by category name ascending, and the first entry
// is the top category.
func Revenue(orders []domain.TransformedOrder, catalog *domain.Catalog) []domain.DailyRevenue {
	if len(orders) == 0 {
		return nil
	}

	sums := make(map[categoryKey]*domain.DailyCategoryRevenue)
	for _, o := range orders {
		key := categoryKey{date: o.Date, category: catalog.CategoryOf(o.ProductID)}
		row, ok := sums[key]
		if !ok {
			row = &domain.DailyCategoryRevenue{Date: o.Date, Category: key.category, Revenue: decimal.Zero}
			sums[key] = row
		}
		row.Revenue = row.Revenue.Add(o.OrderAmount)
		row.Units += o.Qty
	}

	byDate := make(map[time.Time][]domain.DailyCategoryRevenue)
	for _, row := range sums {
		byDate[row.Date] = append(byDate[row.Date], *row)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]domain.DailyRevenue, 0, len(dates))
	for _, d := range dates {
		categories := byDate[d]
		RankCategories(categories)

		total := decimal.Zero
		for _, c := range categories {
			total = total.Add(c.Revenue)
		}
		out = append(out, domain.DailyRevenue{
			Date:               d,
			TotalRevenue:       total,
			TopCategory:        categories[0].Category,
			TopCategoryRevenue: categories[0].Revenue,
			Categories:         categories,
		})
	}
	return out
}

// RankCategories sorts in place by revenue descending, then category ascending.
func RankCategories(rows []domain.DailyCategoryRevenue) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Revenue.Cmp(rows[j].Revenue); c != 0 {
			return c > 0
		}
		return rows[i].Category < rows[j].Category
	})
}
