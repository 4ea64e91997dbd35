// Package seed writes a deterministic sample batch for local runs and tests.
package seed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/validation"
	"github.com/shopspring/decimal"
)

const (
	defaultDays         = 3
	defaultOrdersPerDay = 40
	defaultSeed         = 20251025
)

var defaultStart = time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)

type Options struct {
	Start        time.Time
	Days         int
	OrdersPerDay int
	Seed         uint64
	// BadRows adds a few malformed and unknown-product orders per day.
	BadRows bool
}

func (o Options) withDefaults() Options {
	if o.Start.IsZero() {
		o.Start = defaultStart
	}
	if o.Days <= 0 {
		o.Days = defaultDays
	}
	if o.OrdersPerDay <= 0 {
		o.OrdersPerDay = defaultOrdersPerDay
	}
	if o.Seed == 0 {
		o.Seed = defaultSeed
	}
	return o
}

var products = []domain.Product{
	{ProductID: "P1001", ProductName: "Wireless Mouse", Category: "Electronics"},
	{ProductID: "P1002", ProductName: "USB-C Hub", Category: "Electronics"},
	{ProductID: "P1003", ProductName: "Noise Cancelling Headphones", Category: "Electronics"},
	{ProductID: "P2001", ProductName: "Espresso Beans 1kg", Category: "Grocery"},
	{ProductID: "P2002", ProductName: "Green Tea 100 bags", Category: "Grocery"},
	{ProductID: "P3001", ProductName: "Running Shoes", Category: "Apparel"},
	{ProductID: "P3002", ProductName: "Rain Jacket", Category: "Apparel"},
	{ProductID: "P4001", ProductName: "Gift Card", Category: ""},
}

var prices = map[string]string{
	"P1001": "19.99",
	"P1002": "34.50",
	"P1003": "129.00",
	"P2001": "17.25",
	"P2002": "4.99",
	"P3001": "89.90",
	"P3002": "59.00",
	"P4001": "25.00",
}

var warehouses = []string{"WH-EAST", "WH-WEST"}

// Write creates products.csv, inventory.csv and one orders_YYYYMMDD.csv per day under dir
// and returns the written paths. The same options always produce the same bytes.
func Write(dir string, opts Options) ([]string, error) {
	if dir == "" {
		return nil, errors.New("seed directory is required")
	}
	opts = opts.withDefaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var paths []string
	write := func(name string, header []string, rows [][]string) error {
		path := filepath.Join(dir, name)
		if err := writeCSV(path, header, rows); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		paths = append(paths, path)
		return nil
	}

	if err := write(loader.ProductsFile, validation.ProductColumns, productRows()); err != nil {
		return nil, err
	}
	if err := write(loader.InventoryFile, validation.InventoryColumns, inventoryRows(rng, opts.Start)); err != nil {
		return nil, err
	}
	for day := 0; day < opts.Days; day++ {
		date := opts.Start.AddDate(0, 0, day)
		name := "orders_" + date.Format("20060102") + ".csv"
		if err := write(name, validation.OrderColumns, orderRows(rng, date, day, opts)); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func productRows() [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ProductID, p.ProductName, p.Category})
	}
	return rows
}

func inventoryRows(rng *rand.Rand, start time.Time) [][]string {
	var rows [][]string
	for _, p := range products {
		for _, wh := range warehouses {
			stock := rng.IntN(200)
			restocked := start.AddDate(0, 0, -1-rng.IntN(30))
			rows = append(rows, []string{p.ProductID, wh, strconv.Itoa(stock), restocked.Format(domain.DateLayout)})
		}
	}
	return rows
}

var statusWeights = []struct {
	status domain.OrderStatus
	weight int
}{
	{domain.OrderStatusCompleted, 70},
	{domain.OrderStatusCancelled, 10},
	{domain.OrderStatusReturned, 10},
	{domain.OrderStatusPending, 10},
}

func pickStatus(rng *rand.Rand) domain.OrderStatus {
	n := rng.IntN(100)
	for _, s := range statusWeights {
		if n < s.weight {
			return s.status
		}
		n -= s.weight
	}
	return domain.OrderStatusCompleted
}

func orderRows(rng *rand.Rand, date time.Time, day int, opts Options) [][]string {
	rows := make([][]string, 0, opts.OrdersPerDay+3)
	for i := 0; i < opts.OrdersPerDay; i++ {
		p := products[rng.IntN(len(products))]
		at := date.Add(time.Duration(rng.IntN(24*60)) * time.Minute)
		rows = append(rows, []string{
			orderID(day, i),
			at.Format("2006-01-02 15:04:05"),
			p.ProductID,
			strconv.Itoa(1 + rng.IntN(4)),
			decimal.RequireFromString(prices[p.ProductID]).String(),
			string(pickStatus(rng)),
		})
	}
	if opts.BadRows {
		key := date.Format(domain.DateLayout)
		n := opts.OrdersPerDay
		rows = append(rows,
			[]string{orderID(day, n), key, "P1001", "-2", "19.99", "completed"},
			[]string{orderID(day, n+1), key, "P2001", "1", "17.25", "shipped"},
			[]string{orderID(day, n+2), key, "P9999", "1", "9.99", "completed"},
		)
	}
	return rows
}

func orderID(day, i int) string {
	return fmt.Sprintf("O%02d%04d", day+1, i+1)
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
