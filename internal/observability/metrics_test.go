package observability

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRunCountsRows(t *testing.T) {
	m := NewMetrics()
	result := &domain.RunResult{
		Date: "2025-10-25",
		Sources: map[domain.Source]domain.SourceStats{
			domain.SourceOrders:   {Total: 10, Accepted: 8, Rejected: 2},
			domain.SourceProducts: {Total: 3, Accepted: 3},
		},
		Summary: domain.DailySummary{TotalRevenue: domain.NewMoney(decimal.RequireFromString("12.5"))},
	}
	m.ObserveRun(result, time.Second, nil)

	assert.Equal(t, float64(8), testutil.ToFloat64(m.rowsAccepted.WithLabelValues("orders")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.rowsRejected.WithLabelValues("orders")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("success")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.lastRevenue.WithLabelValues("2025-10-25")))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "schema_error", Outcome(fmt.Errorf("wrap: %w", &domain.SchemaError{Source: domain.SourceOrders})))
	assert.Equal(t, "batch_not_found", Outcome(fmt.Errorf("%w: x", loader.ErrBatchNotFound)))
	assert.Equal(t, "locked", Outcome(domain.ErrRunInProgress))
	assert.Equal(t, "error", Outcome(errors.New("disk full")))

	m := NewMetrics()
	m.ObserveRun(nil, time.Millisecond, domain.ErrRunInProgress)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("locked")))
}

func TestRunDurationHistogram(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun(nil, 100*time.Millisecond, errors.New("boom"))
	m.ObserveRun(&domain.RunResult{Date: "2025-10-25"}, 300*time.Millisecond, nil)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, f := range families {
		if f.GetName() == "salesanalytics_run_duration_seconds" {
			require.Len(t, f.GetMetric(), 1)
			hist = f.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 0.4, hist.GetSampleSum(), 1e-9)
}
