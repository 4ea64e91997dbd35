package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingService struct {
	mu   sync.Mutex
	runs []domain.RunRequest
}

func (s *recordingService) RunForDate(_ context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, req)
	return &domain.RunResult{Date: req.Date}, nil
}

func (s *recordingService) RunRange(context.Context, domain.RangeRequest) ([]domain.RangeOutcome, error) {
	return nil, nil
}

func (s *recordingService) Discover(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *recordingService) dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Date)
	}
	return out
}

func TestWatcherRunsLandedOrdersFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	svc := &recordingService{}
	w := New(svc, in, out, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(in, "orders_20251025.csv")
	require.NoError(t, os.WriteFile(path, []byte("order_id\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("order_id\nO1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "products.csv"), []byte("product_id\n"), 0o644))

	require.Eventually(t, func() bool { return len(svc.dates()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"2025-10-25"}, svc.dates())

	svc.mu.Lock()
	assert.Equal(t, in, svc.runs[0].InputDir)
	assert.Equal(t, out, svc.runs[0].OutputDir)
	svc.mu.Unlock()
}

func waitInflight(t *testing.T, w *Watcher) {
	t.Helper()
	released := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("debounce callback still blocked")
	}
}

func TestFiredDebounceReleasedWhenLoopStops(t *testing.T) {
	w := New(&recordingService{}, t.TempDir(), t.TempDir(), time.Millisecond, zap.NewNop())
	due := make(chan string)
	stopped := make(chan struct{})

	w.handle(fsnotify.Event{Name: "orders_20251025.csv", Op: fsnotify.Create}, due, stopped)
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.pending) == 0
	}, time.Second, time.Millisecond)

	// Nobody reads due: the fired callback is parked until the loop stops.
	close(stopped)
	waitInflight(t, w)
}

func TestLoopStopsOnClosedEventsWithLiveContext(t *testing.T) {
	svc := &recordingService{}
	w := New(svc, t.TempDir(), t.TempDir(), 500*time.Millisecond, zap.NewNop())
	events := make(chan fsnotify.Event)
	errs := make(chan error)

	done := make(chan error, 1)
	go func() { done <- w.loop(context.Background(), events, errs) }()

	events <- fsnotify.Event{Name: "orders_20251025.csv", Op: fsnotify.Write}
	close(events)
	require.NoError(t, <-done)

	waitInflight(t, w)
	assert.Empty(t, svc.dates())
}
