// Package validation splits raw source rows into accepted typed records and rejections.
package validation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
)

var (
	OrderColumns     = []string{"order_id", "order_date", "product_id", "qty", "unit_price", "order_status"}
	ProductColumns   = []string{"product_id", "product_name", "category"}
	InventoryColumns = []string{"product_id", "warehouse_id", "stock_on_hand", "last_restock_date"}
)

// lenientDateLayouts are tried, in order, after the strict YYYY-MM-DD layout fails.
var lenientDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"20060102",
}

// Result holds the outcome of validating one source.
type Result[T any] struct {
	Accepted []T
	Rejected []domain.Rejection
}

// Stats summarizes the result for run reporting.
func (r Result[T]) Stats() domain.SourceStats {
	return domain.SourceStats{
		Total:    len(r.Accepted) + len(r.Rejected),
		Accepted: len(r.Accepted),
		Rejected: len(r.Rejected),
	}
}

type Validator struct {
	statuses map[domain.OrderStatus]struct{}
}

// New builds a validator accepting the given closed set of order statuses. An empty
// set falls back to domain.DefaultOrderStatuses.
func New(statuses []domain.OrderStatus) *Validator {
	if len(statuses) == 0 {
		statuses = domain.DefaultOrderStatuses()
	}
	set := make(map[domain.OrderStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[normalizeStatus(string(s))] = struct{}{}
	}
	return &Validator{statuses: set}
}

func (v *Validator) Orders(t domain.RawTable) (Result[domain.Order], error) {
	return v.orders(t, nil)
}

// OrdersForDate validates orders loaded for the batch of date. A well-formed order whose
// calendar date differs from date is rejected rather than dropped.
func (v *Validator) OrdersForDate(t domain.RawTable, date time.Time) (Result[domain.Order], error) {
	return v.orders(t, &date)
}

func (v *Validator) orders(t domain.RawTable, batchDate *time.Time) (Result[domain.Order], error) {
	if err := requireColumns(t, domain.SourceOrders, OrderColumns); err != nil {
		return Result[domain.Order]{}, err
	}

	out := Result[domain.Order]{Accepted: make([]domain.Order, 0, len(t.Rows))}
	for _, row := range t.Rows {
		var errs fieldErrors
		orderID := errs.required(row, "order_id")
		productID := errs.required(row, "product_id")
		orderDate := errs.date(row, "order_date")
		qty := errs.nonNegativeInt(row, "qty", domain.MaxOrderQty)
		unitPrice := errs.nonNegativeDecimal(row, "unit_price")
		status := v.status(&errs, row)
		if batchDate != nil && !orderDate.IsZero() && !sameDay(orderDate, *batchDate) {
			errs.add(&domain.ValidationError{
				Field:  "order_date",
				Value:  row.Values["order_date"],
				Reason: "outside batch date " + batchDate.Format(domain.DateLayout),
			})
		}

		if errs.any() {
			out.Rejected = append(out.Rejected, errs.rejection(domain.SourceOrders, row))
			continue
		}
		out.Accepted = append(out.Accepted, domain.Order{
			OrderID:   orderID,
			OrderDate: orderDate,
			ProductID: productID,
			Qty:       qty,
			UnitPrice: unitPrice,
			Status:    status,
		})
	}
	return out, nil
}

// Products validates the catalog. product_id is a unique key: later duplicates are rejected.
func (v *Validator) Products(t domain.RawTable) (Result[domain.Product], error) {
	if err := requireColumns(t, domain.SourceProducts, ProductColumns); err != nil {
		return Result[domain.Product]{}, err
	}

	out := Result[domain.Product]{Accepted: make([]domain.Product, 0, len(t.Rows))}
	seen := make(map[string]int, len(t.Rows))
	for _, row := range t.Rows {
		var errs fieldErrors
		productID := errs.required(row, "product_id")
		name := errs.required(row, "product_name")
		category := strings.TrimSpace(row.Values["category"])

		if productID != "" {
			if firstLine, dup := seen[productID]; dup {
				errs.add(&domain.ValidationError{
					Field:  "product_id",
					Value:  productID,
					Reason: "duplicate key, first seen on line " + itoa(firstLine),
				})
			}
		}

		if errs.any() {
			out.Rejected = append(out.Rejected, errs.rejection(domain.SourceProducts, row))
			continue
		}
		seen[productID] = row.Line
		out.Accepted = append(out.Accepted, domain.Product{
			ProductID:   productID,
			ProductName: name,
			Category:    category,
		})
	}
	return out, nil
}

func (v *Validator) Inventory(t domain.RawTable) (Result[domain.InventoryRecord], error) {
	if err := requireColumns(t, domain.SourceInventory, InventoryColumns); err != nil {
		return Result[domain.InventoryRecord]{}, err
	}

	out := Result[domain.InventoryRecord]{Accepted: make([]domain.InventoryRecord, 0, len(t.Rows))}
	for _, row := range t.Rows {
		var errs fieldErrors
		productID := errs.required(row, "product_id")
		warehouseID := errs.required(row, "warehouse_id")
		stock := errs.nonNegativeInt(row, "stock_on_hand", math.MaxInt64)
		restocked := errs.date(row, "last_restock_date")

		if errs.any() {
			out.Rejected = append(out.Rejected, errs.rejection(domain.SourceInventory, row))
			continue
		}
		out.Accepted = append(out.Accepted, domain.InventoryRecord{
			ProductID:       productID,
			WarehouseID:     warehouseID,
			StockOnHand:     stock,
			LastRestockDate: restocked,
		})
	}
	return out, nil
}

func (v *Validator) status(errs *fieldErrors, row domain.RawRow) domain.OrderStatus {
	raw := errs.required(row, "order_status")
	if raw == "" {
		return ""
	}
	status := normalizeStatus(raw)
	if _, ok := v.statuses[status]; !ok {
		errs.add(&domain.ValidationError{Field: "order_status", Value: raw, Reason: "unknown status"})
		return ""
	}
	return status
}

func requireColumns(t domain.RawTable, source domain.Source, columns []string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &domain.SchemaError{Source: source, Missing: missing}
	}
	return nil
}

func normalizeStatus(s string) domain.OrderStatus {
	return domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
}

// ParseDate parses a calendar date strictly as YYYY-MM-DD, then with the lenient layouts.
// The returned time keeps any time-of-day component; callers truncate it.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(domain.DateLayout, v); err == nil {
		return t, true
	}
	for _, layout := range lenientDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type fieldErrors struct {
	errs []*domain.ValidationError
}

func (f *fieldErrors) add(err *domain.ValidationError) {
	f.errs = append(f.errs, err)
}

func (f *fieldErrors) any() bool {
	return len(f.errs) > 0
}

func (f *fieldErrors) required(row domain.RawRow, field string) string {
	v := strings.TrimSpace(row.Values[field])
	if v == "" {
		f.add(&domain.ValidationError{Field: field, Reason: "required"})
	}
	return v
}

func (f *fieldErrors) date(row domain.RawRow, field string) time.Time {
	raw := f.required(row, field)
	if raw == "" {
		return time.Time{}
	}
	t, ok := ParseDate(raw)
	if !ok {
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "not a calendar date"})
	}
	return t
}

func (f *fieldErrors) nonNegativeInt(row domain.RawRow, field string, max int64) int64 {
	raw := f.required(row, field)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	switch {
	case err != nil:
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "not a number"})
	case !d.IsInteger():
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "not an integer"})
	case d.IsNegative():
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "must be >= 0"})
	case d.GreaterThan(decimal.NewFromInt(max)):
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "must be <= " + strconv.FormatInt(max, 10)})
	default:
		return d.IntPart()
	}
	return 0
}

func (f *fieldErrors) nonNegativeDecimal(row domain.RawRow, field string) decimal.Decimal {
	raw := f.required(row, field)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	switch {
	case err != nil:
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "not a number"})
	case d.IsNegative():
		f.add(&domain.ValidationError{Field: field, Value: raw, Reason: "must be >= 0"})
	default:
		return d
	}
	return decimal.Zero
}

func (f *fieldErrors) rejection(source domain.Source, row domain.RawRow) domain.Rejection {
	reasons := make([]string, 0, len(f.errs))
	for _, e := range f.errs {
		reasons = append(reasons, e.Error())
	}
	record := make(map[string]string, len(row.Values))
	for k, v := range row.Values {
		record[k] = v
	}
	return domain.Rejection{
		Source: source,
		Line:   row.Line,
		Record: record,
		Reason: strings.Join(reasons, "; "),
	}
}

func itoa(n int) string {
	return decimal.NewFromInt(int64(n)).String()
}
