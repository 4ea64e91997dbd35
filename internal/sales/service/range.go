package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunRange runs every calendar date from Start to End inclusive with bounded concurrency.
// A failed date is reported in its outcome and does not stop the others.
func (s *service) RunRange(ctx context.Context, req domain.RangeRequest) ([]domain.RangeOutcome, error) {
	dates, err := DateRange(req.Start, req.End, s.cfg.Pipeline.MaxRangeDays)
	if err != nil {
		return nil, err
	}

	limit := s.cfg.Pipeline.BackfillParallelism
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]domain.RangeOutcome, len(dates))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, d := range dates {
		key := d.Format(domain.DateLayout)
		outcomes[i].Date = key
		if ctx.Err() != nil {
			outcomes[i].Err = ctx.Err()
			continue
		}
		g.Go(func() error {
			outcomes[i].Result, outcomes[i].Err = s.RunForDate(ctx, domain.RunRequest{
				Date:      key,
				InputDir:  req.InputDir,
				OutputDir: req.OutputDir,
				DryRun:    req.DryRun,
			})
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	s.log.Info("range finished",
		zap.String("start", req.Start),
		zap.String("end", req.End),
		zap.Int("dates", len(dates)),
		zap.Int("failed", failed),
	)
	return outcomes, ctx.Err()
}

func (s *service) Discover(ctx context.Context, inputDir string) ([]string, error) {
	inputDir = firstNonEmpty(inputDir, s.cfg.InputDir)
	if inputDir == "" {
		return nil, domain.ErrMissingLocation
	}
	dates, err := s.loader.Discover(ctx, inputDir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, d.Format(domain.DateLayout))
	}
	return keys, nil
}

// DefaultMaxRangeDays bounds a range when no limit is configured.
const DefaultMaxRangeDays = 366

// DateRange expands an inclusive range of date keys spanning at most maxDays dates.
// maxDays <= 0 means DefaultMaxRangeDays.
func DateRange(start, end string, maxDays int) ([]time.Time, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	from, err := domain.ParseDateKey(start)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q", domain.ErrInvalidDate, start)
	}
	to, err := domain.ParseDateKey(end)
	if err != nil {
		return nil, fmt.Errorf("%w: end %q", domain.ErrInvalidDate, end)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidRange, end, start)
	}

	span := int((to.Unix()-from.Unix())/86400) + 1
	if span > maxDays {
		return nil, fmt.Errorf("%w: %d days exceeds the limit of %d", domain.ErrInvalidRange, span, maxDays)
	}

	out := make([]time.Time, 0, span)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}
