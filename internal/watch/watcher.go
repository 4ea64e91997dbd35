// Package watch runs a date as soon as its orders file lands in the input directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/zap"
)

const DefaultDebounce = 2 * time.Second

type Watcher struct {
	svc       domain.Service
	inputDir  string
	outputDir string
	debounce  time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	pending  map[string]*pendingRun
	inflight sync.WaitGroup
}

func New(svc domain.Service, inputDir, outputDir string, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		svc:       svc,
		inputDir:  inputDir,
		outputDir: outputDir,
		debounce:  debounce,
		log:       log.Named("watch"),
		pending:   make(map[string]*pendingRun),
	}
}

// Run watches until ctx is done. Writes to one orders file are coalesced: the date runs
// once the file has been quiet for the debounce interval. Runs execute one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.inputDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.inputDir, err)
	}
	w.log.Info("watching input directory", zap.String("dir", w.inputDir), zap.Duration("debounce", w.debounce))

	return w.loop(ctx, fw.Events, fw.Errors)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	due := make(chan string)
	stopped := make(chan struct{})
	defer w.stopTimers()
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			w.handle(event, due, stopped)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case key := <-due:
			w.run(ctx, key)
		}
	}
}

// pendingRun is the debounce timer of one date.
type pendingRun struct {
	timer *time.Timer
}

func (w *Watcher) handle(event fsnotify.Event, due chan<- string, stopped <-chan struct{}) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	date, ok := loader.OrdersFileDate(filepath.Base(event.Name))
	if !ok {
		return
	}
	key := date.Format(domain.DateLayout)

	w.mu.Lock()
	defer w.mu.Unlock()
	if p, exists := w.pending[key]; exists && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingRun{}
	w.inflight.Add(1)
	p.timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.pending[key] == p {
			delete(w.pending, key)
		}
		w.mu.Unlock()
		select {
		case due <- key:
		case <-stopped:
		}
	})
	w.pending[key] = p
}

func (w *Watcher) run(ctx context.Context, key string) {
	result, err := w.svc.RunForDate(ctx, domain.RunRequest{
		Date:      key,
		InputDir:  w.inputDir,
		OutputDir: w.outputDir,
	})
	if err != nil {
		w.log.Error("watched run failed", zap.String("date", key), zap.Error(err))
		return
	}
	w.log.Info("watched run finished",
		zap.String("date", key),
		zap.String("run_id", result.RunID),
		zap.Int("rows_processed", result.RowsProcessed),
	)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, p := range w.pending {
		if p.timer.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, key)
	}
}
