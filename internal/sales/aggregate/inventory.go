package aggregate

import (
	"sort"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
)

// LowStock keeps inventory rows with stock_on_hand strictly below threshold, sorted by
// stock ascending, then product_id, then warehouse_id.
func LowStock(records []domain.InventoryRecord, catalog *domain.Catalog, threshold int64) []domain.LowStock {
	out := make([]domain.LowStock, 0)
	for _, r := range records {
		if r.StockOnHand >= threshold {
			continue
		}
		out = append(out, domain.LowStock{
			ProductID:       r.ProductID,
			ProductName:     catalog.NameOf(r.ProductID),
			WarehouseID:     r.WarehouseID,
			StockOnHand:     r.StockOnHand,
			LastRestockDate: r.LastRestockDate,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StockOnHand != b.StockOnHand {
			return a.StockOnHand < b.StockOnHand
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.WarehouseID < b.WarehouseID
	})
	return out
}
