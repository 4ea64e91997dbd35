package aggregate

import (
	"sort"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
)

// Performance returns one row per product appearing in the orders or the catalog.
// Completed orders feed units_sold and revenue_completed, returned orders feed
// units_returned and revenue_returned, every other status contributes zero.
// Rows are ordered by revenue_completed descending, then product_id ascending.
func Performance(orders []domain.TransformedOrder, catalog *domain.Catalog) []domain.ProductStats {
	stats := make(map[string]*domain.ProductStats, catalog.Len())
	get := func(productID string) *domain.ProductStats {
		if s, ok := stats[productID]; ok {
			return s
		}
		s := &domain.ProductStats{
			ProductID:        productID,
			ProductName:      catalog.NameOf(productID),
			Category:         catalog.CategoryOf(productID),
			RevenueCompleted: decimal.Zero,
			RevenueReturned:  decimal.Zero,
		}
		stats[productID] = s
		return s
	}

	for _, p := range catalog.Products() {
		get(p.ProductID)
	}
	for _, o := range orders {
		s := get(o.ProductID)
		switch o.Status {
		case domain.OrderStatusCompleted:
			s.UnitsSold += o.Qty
			s.RevenueCompleted = s.RevenueCompleted.Add(o.OrderAmount)
		case domain.OrderStatusReturned:
			s.UnitsReturned += o.Qty
			s.RevenueReturned = s.RevenueReturned.Add(o.OrderAmount)
		}
	}

	out := make([]domain.ProductStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].RevenueCompleted.Cmp(out[j].RevenueCompleted); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
