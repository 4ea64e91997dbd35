package domain

import (
	"context"
	"strings"
	"time"
)

type Service interface {
	RunForDate(ctx context.Context, req RunRequest) (*RunResult, error)
	RunRange(ctx context.Context, req RangeRequest) ([]RangeOutcome, error)
	Discover(ctx context.Context, inputDir string) ([]string, error)
}

type RunRequest struct {
	Date      string `json:"date"`
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	DryRun    bool   `json:"dry_run"`
}

type RangeRequest struct {
	Start     string
	End       string
	InputDir  string
	OutputDir string
	DryRun    bool
}

type SourceStats struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

type OutputFile struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Rows     int    `json:"rows"`
}

type RunResult struct {
	RunID         string                 `json:"run_id"`
	Date          string                 `json:"date"`
	RowsProcessed int                    `json:"rows_processed"`
	RowsRejected  int                    `json:"rows_rejected"`
	Sources       map[Source]SourceStats `json:"sources"`
	OutputPaths   []OutputFile           `json:"output_paths"`
	Summary       DailySummary           `json:"summary"`
	DryRun        bool                   `json:"dry_run"`
}

// RangeOutcome is the per-date result of a range run. Err is set when that date failed.
type RangeOutcome struct {
	Date   string
	Result *RunResult
	Err    error
}

// Loader reads raw sources from an input location.
type Loader interface {
	LoadOrders(ctx context.Context, inputDir string, date time.Time) (RawTable, error)
	LoadProducts(ctx context.Context, inputDir string) (RawTable, error)
	LoadInventory(ctx context.Context, inputDir string) (RawTable, error)
	Discover(ctx context.Context, inputDir string) ([]time.Time, error)
}

// ArtifactWriter persists a partition under an output location.
type ArtifactWriter interface {
	WritePartition(ctx context.Context, outputDir string, p Partition) ([]OutputFile, error)
}

// PartitionSink receives a partition after its artifacts are written.
type PartitionSink interface {
	Name() string
	ReplacePartition(ctx context.Context, runID string, p Partition) error
}

// SummaryPublisher announces a finished partition's summary to downstream consumers.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, runID string, summary DailySummary) error
}

// AlertNotifier delivers low-stock alerts of a date.
type AlertNotifier interface {
	NotifyLowStock(ctx context.Context, date string, rows []LowStockAlertRow) error
}

// RunGuard serializes runs of the same date and keeps a ledger of finished runs.
type RunGuard interface {
	Acquire(ctx context.Context, date string, token string) (release func(context.Context) error, err error)
	Record(ctx context.Context, result RunResult) error
}

// ParseDateKey accepts YYYY-MM-DD or YYYYMMDD and returns midnight UTC of that date.
func ParseDateKey(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range []string{DateLayout, "20060102"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
