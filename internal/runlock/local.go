package runlock

import (
	"context"
	"sync"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
)

// LocalGuard is the in-process guard used when Redis is not configured. It only
// serializes runs inside one process.
type LocalGuard struct {
	mu     sync.Mutex
	held   map[string]string
	ledger map[string]domain.RunResult
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{
		held:   make(map[string]string),
		ledger: make(map[string]domain.RunResult),
	}
}

func (g *LocalGuard) Acquire(_ context.Context, date string, token string) (func(context.Context) error, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[date]; ok {
		return nil, domain.ErrRunInProgress
	}
	g.held[date] = token

	return func(context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.held[date] == token {
			delete(g.held, date)
		}
		return nil
	}, nil
}

func (g *LocalGuard) Record(_ context.Context, result domain.RunResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ledger[result.Date] = result
	return nil
}

func (g *LocalGuard) Last(_ context.Context, date string) (*domain.RunResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	result, ok := g.ledger[date]
	if !ok {
		return nil, ErrNoRun
	}
	return &result, nil
}
