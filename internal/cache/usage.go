package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// usageRetention bounds how long call timestamps are kept
const usageRetention = 25 * time.Hour

// UsageCounter records real provider calls and counts them over the trailing
// minute and since the start of the local day. Redis sorted sets hold the
// timestamps so counts are shared between replicas; the memory fallback is
// per-process.
type UsageCounter struct {
	client *redis.Client
	logger *logrus.Logger

	mu  sync.Mutex
	mem map[models.ProviderID][]time.Time
}

// NewUsageCounter creates a usage counter. client may be nil.
func NewUsageCounter(client *redis.Client, logger *logrus.Logger) *UsageCounter {
	return &UsageCounter{
		client: client,
		logger: logger,
		mem:    make(map[models.ProviderID][]time.Time),
	}
}

func usageKey(provider models.ProviderID) string {
	return "usage:" + string(provider)
}

// StartOfDay returns local midnight for t
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Record stores one call made at the given instant
func (u *UsageCounter) Record(ctx context.Context, provider models.ProviderID, at time.Time) error {
	if u.client != nil {
		key := usageKey(provider)
		pipe := u.client.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(at.Add(-usageRetention).UnixMilli(), 10))
		pipe.Expire(ctx, key, usageRetention)
		_, err := pipe.Exec(ctx)
		if err == nil {
			return nil
		}
		u.logger.WithFields(logrus.Fields{
			"provider": provider,
			"error":    err.Error(),
		}).Warn("Redis usage record error, falling back to memory counter")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	cutoff := at.Add(-usageRetention)
	kept := u.mem[provider][:0]
	for _, ts := range u.mem[provider] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	u.mem[provider] = append(kept, at)
	return nil
}

// Counts returns calls in (now-60s, now] and in [startOfDay(now), now]
func (u *UsageCounter) Counts(ctx context.Context, provider models.ProviderID, now time.Time) (int64, int64, error) {
	minuteFrom := now.Add(-time.Minute)
	dayFrom := StartOfDay(now)

	if u.client != nil {
		key := usageKey(provider)
		pipe := u.client.Pipeline()
		minute := pipe.ZCount(ctx, key, "("+strconv.FormatInt(minuteFrom.UnixMilli(), 10), "+inf")
		day := pipe.ZCount(ctx, key, strconv.FormatInt(dayFrom.UnixMilli(), 10), "+inf")
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, 0, fmt.Errorf("read usage for %s: %w", provider, err)
		}
		return minute.Val(), day.Val(), nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var minute, day int64
	for _, ts := range u.mem[provider] {
		if ts.After(now) {
			continue
		}
		if ts.After(minuteFrom) {
			minute++
		}
		if !ts.Before(dayFrom) {
			day++
		}
	}
	return minute, day, nil
}
