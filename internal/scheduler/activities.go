package scheduler

import (
	"context"
	"errors"

	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Activities adapts the sales service to Temporal. Method names are the registered
// activity names.
type Activities struct {
	Service domain.Service
}

func (a *Activities) DiscoverDates(ctx context.Context, inputDir string) ([]string, error) {
	dates, err := a.Service.Discover(ctx, inputDir)
	if err != nil {
		return nil, classify(err)
	}
	return dates, nil
}

func (a *Activities) RunForDate(ctx context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running date", "date", req.Date, "attempt", activity.GetInfo(ctx).Attempt)

	result, err := a.Service.RunForDate(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// classify maps pipeline errors to application error types. Errors that a retry cannot
// fix are non-retryable.
func classify(err error) error {
	switch {
	case domain.IsSchemaError(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSchema, err)
	case errors.Is(err, loader.ErrBatchNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeBatchNotFound, err)
	case errors.Is(err, domain.ErrInvalidDate), errors.Is(err, domain.ErrMissingLocation):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidDate, err)
	case errors.Is(err, domain.ErrRunInProgress):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeRunInProgress, err)
	default:
		return err
	}
}
