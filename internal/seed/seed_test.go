package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteIsDeterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := Write(a, Options{BadRows: true})
	require.NoError(t, err)
	paths, err := Write(b, Options{BadRows: true})
	require.NoError(t, err)
	require.Len(t, paths, 2+defaultDays)

	for _, p := range paths {
		left, err := os.ReadFile(filepath.Join(a, filepath.Base(p)))
		require.NoError(t, err)
		right, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(left, right), filepath.Base(p))
	}
}

func TestWriteProducesLoadableBatch(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, Options{Days: 2, OrdersPerDay: 10, BadRows: true})
	require.NoError(t, err)

	l := loader.New(zap.NewNop())
	ctx := context.Background()
	dates, err := l.Discover(ctx, dir)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2025-10-25", dates[0].Format("2006-01-02"))

	raw, err := l.LoadOrders(ctx, dir, dates[1])
	require.NoError(t, err)
	res, err := validation.New(nil).OrdersForDate(raw, dates[1])
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 11)
	assert.Len(t, res.Rejected, 2)

	products, err := l.LoadProducts(ctx, dir)
	require.NoError(t, err)
	pres, err := validation.New(nil).Products(products)
	require.NoError(t, err)
	assert.Len(t, pres.Accepted, len(products.Rows))
}
