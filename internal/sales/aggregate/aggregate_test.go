package aggregate

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/transform"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)

func order(id, productID string, qty int64, price string, status domain.OrderStatus) domain.Order {
	return domain.Order{
		OrderID:   id,
		OrderDate: day,
		ProductID: productID,
		Qty:       qty,
		UnitPrice: decimal.RequireFromString(price),
		Status:    status,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCancelledOrderScenario(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P1", ProductName: "Phone", Category: "Electronics"}})
	orders := transform.Orders([]domain.Order{
		order("1", "P1", 2, "10.00", domain.OrderStatusCompleted),
		order("2", "P1", 1, "10.00", domain.OrderStatusCancelled),
	})
	assert.True(t, dec("20").Equal(orders[0].OrderAmount))
	assert.True(t, orders[1].OrderAmount.IsZero())

	revenue := Revenue(orders, catalog)
	require.Len(t, revenue, 1)
	assert.Equal(t, day, revenue[0].Date)
	assert.True(t, dec("20").Equal(revenue[0].TotalRevenue))
	assert.Equal(t, "Electronics", revenue[0].TopCategory)
	assert.True(t, dec("20").Equal(revenue[0].TopCategoryRevenue))
	assert.Equal(t, int64(3), revenue[0].Categories[0].Units)

	perf := Performance(orders, catalog)
	require.Len(t, perf, 1)
	assert.Equal(t, int64(2), perf[0].UnitsSold)
	assert.Equal(t, int64(0), perf[0].UnitsReturned)
	assert.True(t, dec("20").Equal(perf[0].RevenueCompleted))
	assert.True(t, perf[0].ReturnRatePercent().IsZero())
}

func TestReturnRateScenario(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P2", ProductName: "Mug", Category: "Home"}})
	orders := transform.Orders([]domain.Order{
		order("1", "P2", 3, "5.00", domain.OrderStatusReturned),
		order("2", "P2", 1, "5.00", domain.OrderStatusCompleted),
	})

	perf := Performance(orders, catalog)
	require.Len(t, perf, 1)
	p := perf[0]
	assert.Equal(t, int64(3), p.UnitsReturned)
	assert.Equal(t, int64(1), p.UnitsSold)
	assert.Equal(t, int64(4), p.TotalUnitsTransacted())
	assert.True(t, dec("75").Equal(p.ReturnRatePercent()))
	assert.True(t, dec("15").Equal(p.RevenueReturned))
	assert.True(t, dec("5").Equal(p.RevenueCompleted))
}

func TestLowStockScenario(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P1", ProductName: "Phone", Category: "Electronics"}})
	alerts := LowStock([]domain.InventoryRecord{
		{ProductID: "P1", WarehouseID: "W1", StockOnHand: 40, LastRestockDate: day},
		{ProductID: "P1", WarehouseID: "W2", StockOnHand: 60, LastRestockDate: day},
		{ProductID: "P9", WarehouseID: "W1", StockOnHand: 50, LastRestockDate: day},
	}, catalog, domain.DefaultLowStockThreshold)

	require.Len(t, alerts, 1)
	assert.Equal(t, "W1", alerts[0].WarehouseID)
	require.NotNil(t, alerts[0].ProductName)
	assert.Equal(t, "Phone", *alerts[0].ProductName)
}

func TestLowStockOrderingAndUnknownProduct(t *testing.T) {
	alerts := LowStock([]domain.InventoryRecord{
		{ProductID: "P2", WarehouseID: "W2", StockOnHand: 5},
		{ProductID: "P2", WarehouseID: "W1", StockOnHand: 5},
		{ProductID: "P1", WarehouseID: "W3", StockOnHand: 5},
		{ProductID: "P3", WarehouseID: "W1", StockOnHand: 0},
	}, domain.NewCatalog(nil), 10)

	require.Len(t, alerts, 4)
	got := make([]string, 0, len(alerts))
	for _, a := range alerts {
		got = append(got, a.ProductID+"/"+a.WarehouseID)
		assert.Nil(t, a.ProductName)
	}
	assert.Equal(t, []string{"P3/W1", "P1/W3", "P2/W1", "P2/W2"}, got)
}

func TestUnknownProductScenario(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P1", ProductName: "Phone", Category: "Electronics"}})
	orders := transform.Orders([]domain.Order{
		order("1", "P1", 1, "10.00", domain.OrderStatusCompleted),
		order("2", "P404", 3, "7.50", domain.OrderStatusCompleted),
	})

	revenue := Revenue(orders, catalog)
	require.Len(t, revenue, 1)
	assert.True(t, dec("32.50").Equal(revenue[0].TotalRevenue))
	assert.Equal(t, domain.CategoryUnknown, revenue[0].TopCategory)
	require.Len(t, revenue[0].Categories, 2)
	assert.Equal(t, "Electronics", revenue[0].Categories[1].Category)

	perf := Performance(orders, catalog)
	require.Len(t, perf, 2)
	assert.Equal(t, "P404", perf[0].ProductID)
	assert.Nil(t, perf[0].ProductName)
	assert.Equal(t, domain.CategoryUnknown, perf[0].Category)
}

func TestBlankCategoryCollapsesToUnknown(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P1", ProductName: "Thing", Category: "  "}})
	revenue := Revenue(transform.Orders([]domain.Order{
		order("1", "P1", 1, "1", domain.OrderStatusCompleted),
	}), catalog)
	require.Len(t, revenue, 1)
	assert.Equal(t, domain.CategoryUnknown, revenue[0].TopCategory)
}

func TestNoOrdersNoSummary(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{{ProductID: "P1", ProductName: "Phone", Category: "Electronics"}})
	assert.Empty(t, Revenue(nil, catalog))

	perf := Performance(nil, catalog)
	require.Len(t, perf, 1)
	assert.Equal(t, int64(0), perf[0].TotalUnitsTransacted())
	assert.True(t, perf[0].ReturnRatePercent().IsZero())
}

func TestTopCategoryTieBreaksByName(t *testing.T) {
	catalog := domain.NewCatalog([]domain.Product{
		{ProductID: "P1", ProductName: "A", Category: "Toys"},
		{ProductID: "P2", ProductName: "B", Category: "Books"},
		{ProductID: "P3", ProductName: "C", Category: "Garden"},
	})
	orders := transform.Orders([]domain.Order{
		order("1", "P1", 1, "10", domain.OrderStatusCompleted),
		order("2", "P2", 2, "5", domain.OrderStatusCompleted),
		order("3", "P3", 1, "3", domain.OrderStatusCompleted),
	})

	revenue := Revenue(orders, catalog)
	require.Len(t, revenue, 1)
	assert.Equal(t, "Books", revenue[0].TopCategory)

	names := make([]string, 0, 3)
	for _, c := range revenue[0].Categories {
		names = append(names, c.Category)
	}
	assert.Equal(t, []string{"Books", "Toys", "Garden"}, names)
}

func TestPerformanceTieBreaksByProductID(t *testing.T) {
	orders := transform.Orders([]domain.Order{
		order("1", "P3", 1, "10", domain.OrderStatusCompleted),
		order("2", "P1", 1, "10", domain.OrderStatusCompleted),
		order("3", "P2", 1, "20", domain.OrderStatusCompleted),
		order("4", "P0", 1, "20", domain.OrderStatusPending),
	})
	perf := Performance(orders, domain.NewCatalog(nil))

	ids := make([]string, 0, len(perf))
	for _, p := range perf {
		ids = append(ids, p.ProductID)
	}
	assert.Equal(t, []string{"P2", "P1", "P3", "P0"}, ids)
}

func TestRevenueGroupsMultipleDates(t *testing.T) {
	next := day.AddDate(0, 0, 1)
	raw := []domain.Order{
		order("1", "P1", 1, "4", domain.OrderStatusCompleted),
		order("2", "P1", 1, "6", domain.OrderStatusCompleted),
	}
	raw[0].OrderDate = next.Add(5 * time.Hour)

	revenue := Revenue(transform.Orders(raw), domain.NewCatalog(nil))
	require.Len(t, revenue, 2)
	assert.Equal(t, day, revenue[0].Date)
	assert.Equal(t, next, revenue[1].Date)
	assert.True(t, dec("6").Equal(revenue[0].TotalRevenue))
	assert.True(t, dec("4").Equal(revenue[1].TotalRevenue))
}

func randomBatch(r *rand.Rand, n int) ([]domain.Order, *domain.Catalog) {
	categories := []string{"Electronics", "Home", "Toys", ""}
	products := make([]domain.Product, 0, 8)
	for i := 0; i < 8; i++ {
		products = append(products, domain.Product{
			ProductID:   fmt.Sprintf("P%d", i),
			ProductName: fmt.Sprintf("Product %d", i),
			Category:    categories[r.IntN(len(categories))],
		})
	}
	statuses := domain.DefaultOrderStatuses()
	orders := make([]domain.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, domain.Order{
			OrderID:   fmt.Sprintf("O%d", i),
			OrderDate: day.AddDate(0, 0, r.IntN(3)).Add(time.Duration(r.IntN(86400)) * time.Second),
			ProductID: fmt.Sprintf("P%d", r.IntN(10)),
			Qty:       int64(r.IntN(20)),
			UnitPrice: decimal.New(int64(r.IntN(100000)), -3),
			Status:    statuses[r.IntN(len(statuses))],
		})
	}
	return orders, domain.NewCatalog(products)
}

func TestRevenueConservation(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 20; round++ {
		raw, catalog := randomBatch(r, 200)
		orders := transform.Orders(raw)

		expected := make(map[time.Time]decimal.Decimal)
		for _, o := range orders {
			assert.False(t, o.OrderAmount.IsNegative())
			expected[o.Date] = expected[o.Date].Add(o.OrderAmount)
		}

		for _, d := range Revenue(orders, catalog) {
			assert.True(t, expected[d.Date].Equal(d.TotalRevenue), "date %s", d.Date)

			sum := decimal.Zero
			for _, c := range d.Categories {
				sum = sum.Add(c.Revenue)
				assert.True(t, d.TopCategoryRevenue.GreaterThanOrEqual(c.Revenue))
			}
			assert.True(t, sum.Equal(d.TotalRevenue))
			assert.Equal(t, d.Categories[0].Category, d.TopCategory)
		}
	}
}

func TestPerformanceAdditivityAndRateBound(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for round := 0; round < 20; round++ {
		raw, catalog := randomBatch(r, 150)
		orders := transform.Orders(raw)

		var sold, returned int64
		for _, o := range orders {
			switch o.Status {
			case domain.OrderStatusCompleted:
				sold += o.Qty
			case domain.OrderStatusReturned:
				returned += o.Qty
			}
		}

		var gotSold, gotReturned int64
		seen := make(map[string]bool)
		for _, p := range Performance(orders, catalog) {
			assert.False(t, seen[p.ProductID], "duplicate product %s", p.ProductID)
			seen[p.ProductID] = true
			assert.Equal(t, p.UnitsSold+p.UnitsReturned, p.TotalUnitsTransacted())

			rate := p.ReturnRatePercent()
			assert.True(t, rate.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, rate.LessThanOrEqual(decimal.NewFromInt(100)))

			gotSold += p.UnitsSold
			gotReturned += p.UnitsReturned
		}
		assert.Equal(t, sold, gotSold)
		assert.Equal(t, returned, gotReturned)
		for _, p := range catalog.Products() {
			assert.True(t, seen[p.ProductID])
		}
	}
}

func TestPerformanceAtMaxOrderQty(t *testing.T) {
	orders := transform.Orders([]domain.Order{
		order("1", "P1", domain.MaxOrderQty, "1", domain.OrderStatusCompleted),
		order("2", "P1", domain.MaxOrderQty, "1", domain.OrderStatusCompleted),
		order("3", "P1", domain.MaxOrderQty, "1", domain.OrderStatusReturned),
		order("4", "P1", domain.MaxOrderQty, "1", domain.OrderStatusReturned),
	})
	perf := Performance(orders, domain.NewCatalog(nil))
	require.Len(t, perf, 1)

	p := perf[0]
	assert.Equal(t, int64(2*domain.MaxOrderQty), p.UnitsSold)
	assert.Equal(t, int64(2*domain.MaxOrderQty), p.UnitsReturned)
	assert.Equal(t, int64(4*domain.MaxOrderQty), p.TotalUnitsTransacted())
	assert.True(t, dec("50").Equal(p.ReturnRatePercent()))

	revenue := Revenue(orders, domain.NewCatalog(nil))
	require.Len(t, revenue, 1)
	assert.Equal(t, int64(4*domain.MaxOrderQty), revenue[0].Categories[0].Units)
}
