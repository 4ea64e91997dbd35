// Package runlock serializes runs of the same date and keeps the ledger of finished runs.
package runlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 15 * time.Minute

	// historySize bounds the per-date run history list.
	historySize = 20
)

var ErrNoRun = errors.New("run_not_found")

// Ledger exposes the most recent finished run of a date.
type Ledger interface {
	Last(ctx context.Context, date string) (*domain.RunResult, error)
}

func LockKey(date string) string   { return "sales:lock:" + date }
func LedgerKey(date string) string { return "sales:runs:" + date }
func historyKey(date string) string {
	return "sales:runs:" + date + ":history"
}

// releaseScript deletes the lock only while it still holds the caller's token, so a run
// whose lock expired cannot release a lock taken over by another run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, ttl: ttl, log: log.Named("runlock")}
}

func (g *RedisGuard) Acquire(ctx context.Context, date string, token string) (func(context.Context) error, error) {
	key := LockKey(date)
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		holder, _ := g.client.Get(ctx, key).Result()
		g.log.Warn("run lock held", zap.String("date", date), zap.String("holder", holder))
		return nil, domain.ErrRunInProgress
	}

	release := func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, g.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		if released == 0 {
			g.log.Warn("run lock expired before release", zap.String("date", date), zap.String("token", token))
		}
		return nil
	}
	return release, nil
}

// Record stores result as the latest run of its date and prepends it to the date's history.
func (g *RedisGuard) Record(ctx context.Context, result domain.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run ledger: %w", err)
	}

	pipe := g.client.TxPipeline()
	pipe.Set(ctx, LedgerKey(result.Date), payload, 0)
	pipe.LPush(ctx, historyKey(result.Date), payload)
	pipe.LTrim(ctx, historyKey(result.Date), 0, historySize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write run ledger: %w", err)
	}
	return nil
}

func (g *RedisGuard) Last(ctx context.Context, date string) (*domain.RunResult, error) {
	payload, err := g.client.Get(ctx, LedgerKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("read run ledger: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode run ledger: %w", err)
	}
	return &result, nil
}

// History returns up to n recent runs of date, newest first.
func (g *RedisGuard) History(ctx context.Context, date string, n int) ([]domain.RunResult, error) {
	if n <= 0 || n > historySize {
		n = historySize
	}
	items, err := g.client.LRange(ctx, historyKey(date), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read run history: %w", err)
	}
	out := make([]domain.RunResult, 0, len(items))
	for _, item := range items {
		var result domain.RunResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("decode run history: %w", err)
		}
		out = append(out, result)
	}
	return out, nil
}
