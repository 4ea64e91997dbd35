package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/observability"
	"github.com/railzwaylabs/salesanalytics/internal/runlock"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RunForDate(ctx context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.RunResult)
	return res, args.Error(1)
}

func (m *MockService) RunRange(ctx context.Context, req domain.RangeRequest) ([]domain.RangeOutcome, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).([]domain.RangeOutcome)
	return res, args.Error(1)
}

func (m *MockService) Discover(ctx context.Context, inputDir string) ([]string, error) {
	args := m.Called(ctx, inputDir)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

type testEnv struct {
	router *gin.Engine
	svc    *MockService
	ledger *runlock.LocalGuard
	out    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := testEnv{svc: new(MockService), ledger: runlock.NewLocalGuard(), out: t.TempDir()}
	srv := NewServer(ServerParams{
		Cfg:     config.Config{InputDir: "in", OutputDir: env.out},
		Log:     zap.NewNop(),
		Service: env.svc,
		Ledger:  env.ledger,
		Metrics: observability.NewMetrics(),
	})
	env.router = gin.New()
	srv.RegisterRoutes(env.router)
	return env
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestGetSummary(t *testing.T) {
	env := newTestEnv(t)
	path := writer.SummaryPath(env.out, "2025-10-25")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"date":"2025-10-25","total_revenue":32.00,"top_category":"Electronics","top_category_revenue":20.00}`), 0o644))

	resp := env.do(http.MethodGet, "/v1/summaries/20251025", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t,
		`{"data":{"date":"2025-10-25","total_revenue":32.00,"top_category":"Electronics","top_category_revenue":20.00}}`,
		resp.Body.String())

	resp = env.do(http.MethodGet, "/v1/summaries/2025-10-26", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(http.MethodGet, "/v1/summaries/yesterday", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_date", errorCode(t, resp))
}

func TestTriggerRun(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("RunForDate", mock.Anything, domain.RunRequest{Date: "2025-10-25", InputDir: "in", OutputDir: env.out, DryRun: true}).
		Return(&domain.RunResult{RunID: "1", Date: "2025-10-25", RowsProcessed: 3, DryRun: true}, nil)

	resp := env.do(http.MethodPost, "/v1/runs/2025-10-25?dry_run=true", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data domain.RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.RowsProcessed)
	assert.True(t, body.Data.DryRun)

	resp = env.do(http.MethodPost, "/v1/runs/2025-10-25?dry_run=maybe", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTriggerRunErrorStatuses(t *testing.T) {
	cases := []struct {
		date   string
		err    error
		status int
		code   string
	}{
		{"2025-10-01", domain.ErrRunInProgress, http.StatusConflict, "run_in_progress"},
		{"2025-10-02", fmt.Errorf("%w: no orders file", loader.ErrBatchNotFound), http.StatusNotFound, "batch_not_found"},
		{"2025-10-03", &domain.SchemaError{Source: domain.SourceOrders, Missing: []string{"qty"}}, http.StatusUnprocessableEntity, "schema_error"},
		{"2025-10-04", fmt.Errorf("write partition: %w", os.ErrPermission), http.StatusInternalServerError, "internal_error"},
	}

	env := newTestEnv(t)
	for _, tc := range cases {
		env.svc.On("RunForDate", mock.Anything, mock.MatchedBy(func(r domain.RunRequest) bool { return r.Date == tc.date })).
			Return(nil, tc.err)
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/v1/runs/"+tc.date, "")
			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.code, errorCode(t, resp))
		})
	}
}

func TestGetLastRun(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/v1/runs/2025-10-25", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "run_not_found", errorCode(t, resp))

	require.NoError(t, env.ledger.Record(context.Background(), domain.RunResult{RunID: "7", Date: "2025-10-25"}))
	resp = env.do(http.MethodGet, "/v1/runs/2025-10-25", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"run_id":"7"`)
}

func TestTriggerBackfill(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("RunRange", mock.Anything, domain.RangeRequest{Start: "2025-10-24", End: "2025-10-25", InputDir: "in", OutputDir: env.out}).
		Return([]domain.RangeOutcome{
			{Date: "2025-10-24", Err: loader.ErrBatchNotFound},
			{Date: "2025-10-25", Result: &domain.RunResult{RunID: "9", Date: "2025-10-25"}},
		}, nil)

	resp := env.do(http.MethodPost, "/v1/backfills", `{"start":"2025-10-24","end":"2025-10-25"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data []backfillOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.NotNil(t, body.Data[0].Error)
	assert.Equal(t, "batch_not_found", body.Data[0].Error.Code)
	assert.Equal(t, "9", body.Data[1].Result.RunID)

	resp = env.do(http.MethodPost, "/v1/backfills", `{"start":"2025-10-24"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTriggerBackfillOversizedRange(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("RunRange", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: 3652059 days exceeds the limit of 366", domain.ErrInvalidRange))

	resp := env.do(http.MethodPost, "/v1/backfills", `{"start":"0001-01-01","end":"9999-12-31"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListDates(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("Discover", mock.Anything, "in").Return([]string{"2025-10-25"}, nil)

	resp := env.do(http.MethodGet, "/v1/dates", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":["2025-10-25"]}`, resp.Body.String())
}
