// Package scheduler runs daily sales batches as Temporal workflows.
package scheduler

import (
	"errors"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityDiscoverDates = "DiscoverDates"
	ActivityRunForDate    = "RunForDate"

	ErrTypeSchema        = "SchemaError"
	ErrTypeBatchNotFound = "BatchNotFound"
	ErrTypeInvalidDate   = "InvalidDate"
	ErrTypeRunInProgress = "RunInProgress"
)

type DailySalesInput struct {
	// Dates to run. Empty means every date discovered in InputDir.
	Dates     []string `json:"dates"`
	InputDir  string   `json:"input_dir"`
	OutputDir string   `json:"output_dir"`
	DryRun    bool     `json:"dry_run"`
}

// DateOutcome is the result of one date. Error and ErrorType are set when it failed
// after retries.
type DateOutcome struct {
	Date      string            `json:"date"`
	Result    *domain.RunResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
}

type DailySalesOutput struct {
	Outcomes []DateOutcome `json:"outcomes"`
	Failed   int           `json:"failed"`
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeSchema, ErrTypeBatchNotFound, ErrTypeInvalidDate},
		},
	}
}

// DailySalesWorkflow runs every requested date concurrently. A date that fails is reported
// in its outcome; the workflow itself only fails when discovery fails.
func DailySalesWorkflow(ctx workflow.Context, in DailySalesInput) (DailySalesOutput, error) {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	dates := in.Dates
	if len(dates) == 0 {
		if err := workflow.ExecuteActivity(ctx, ActivityDiscoverDates, in.InputDir).Get(ctx, &dates); err != nil {
			return DailySalesOutput{}, err
		}
		logger.Info("Dates discovered", "count", len(dates))
	}

	futures := make([]workflow.Future, len(dates))
	for i, date := range dates {
		futures[i] = workflow.ExecuteActivity(ctx, ActivityRunForDate, domain.RunRequest{
			Date:      date,
			InputDir:  in.InputDir,
			OutputDir: in.OutputDir,
			DryRun:    in.DryRun,
		})
	}

	out := DailySalesOutput{Outcomes: make([]DateOutcome, len(dates))}
	for i, f := range futures {
		outcome := DateOutcome{Date: dates[i]}
		var result domain.RunResult
		if err := f.Get(ctx, &result); err != nil {
			outcome.Error = err.Error()
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) {
				outcome.ErrorType = appErr.Type()
			}
			out.Failed++
			logger.Warn("Date failed", "date", dates[i], "error", err)
		} else {
			outcome.Result = &result
		}
		out.Outcomes[i] = outcome
	}

	logger.Info("Daily sales workflow completed", "dates", len(dates), "failed", out.Failed)
	return out, nil
}
