package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func alerts(n int) []domain.LowStockAlertRow {
	rows := make([]domain.LowStockAlertRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.LowStockAlertRow{
			ProductID:       "P" + string(rune('A'+i)),
			WarehouseID:     "W1",
			StockOnHand:     int64(i),
			LastRestockDate: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return rows
}

func TestNotifyLowStockPostsMessage(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rows := alerts(1)
	rows[0].ProductName = strPtr("Phone")

	n := NewSlackNotifier(srv.URL, "#ops", zap.NewNop())
	require.NoError(t, n.NotifyLowStock(context.Background(), "2025-10-25", rows))

	assert.Equal(t, "#ops", got.Channel)
	assert.Contains(t, got.Text, "*Low stock 2025-10-25*: 1 item(s)")
	assert.Contains(t, got.Text, "Phone (PA) @ W1: 0 on hand, restocked 2025-10-01")
}

func TestNotifyLowStockSkipsEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "", zap.NewNop())
	require.NoError(t, n.NotifyLowStock(context.Background(), "2025-10-25", nil))
	assert.False(t, called)
}

func TestNotifyLowStockSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL, "", zap.NewNop()).NotifyLowStock(context.Background(), "2025-10-25", alerts(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=403")
}

func TestFormatLowStockTruncates(t *testing.T) {
	text := formatLowStock("2025-10-25", alerts(maxListed+3))
	assert.Equal(t, maxListed, strings.Count(text, "\n- "))
	assert.True(t, strings.HasSuffix(text, "...and 3 more"))
}
