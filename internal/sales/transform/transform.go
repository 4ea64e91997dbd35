// Package transform derives per-order amounts and date keys from validated orders.
package transform

import (
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
)

// Order applies the cancellation rule and truncates the order date to its calendar day.
func Order(o domain.Order) domain.TransformedOrder {
	return domain.TransformedOrder{
		Order:       o,
		Date:        DateKey(o.OrderDate),
		OrderAmount: Amount(o),
	}
}

// Orders maps every order. The input slice is not modified.
func Orders(orders []domain.Order) []domain.TransformedOrder {
	out := make([]domain.TransformedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, Order(o))
	}
	return out
}

// Amount is zero for cancelled orders and qty * unit_price otherwise.
func Amount(o domain.Order) decimal.Decimal {
	if o.Status == domain.OrderStatusCancelled {
		return decimal.Zero
	}
	return decimal.NewFromInt(o.Qty).Mul(o.UnitPrice)
}

// DateKey is the wall-clock calendar date of t at midnight UTC.
func DateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ForDate keeps the transformed orders whose date key equals date.
func ForDate(orders []domain.TransformedOrder, date time.Time) []domain.TransformedOrder {
	key := DateKey(date)
	out := make([]domain.TransformedOrder, 0, len(orders))
	for _, o := range orders {
		if o.Date.Equal(key) {
			out = append(out, o)
		}
	}
	return out
}
