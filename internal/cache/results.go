package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// ResultCache keeps successful real provider results so repeated lookups of
// the same target within the TTL do not hit (and pay for) the provider again.
type ResultCache struct {
	store  *Store
	ttl    time.Duration
	logger *logrus.Logger
}

// NewResultCache creates a result cache. A non-positive ttl disables it.
func NewResultCache(store *Store, ttl time.Duration, logger *logrus.Logger) *ResultCache {
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// ResultKey identifies a (provider, query) pair
func ResultKey(provider models.ProviderID, query models.ProviderQuery) string {
	var b strings.Builder
	b.WriteString(string(provider))
	b.WriteByte('|')
	b.WriteString(string(query.QueryType))
	b.WriteByte('|')
	b.WriteString(query.TargetDocument)

	keys := make([]string, 0, len(query.Params))
	for k := range query.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(query.Params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "result:" + string(provider) + ":" + hex.EncodeToString(sum[:16])
}

// Get returns a cached result or false
func (c *ResultCache) Get(ctx context.Context, provider models.ProviderID, query models.ProviderQuery) (*models.ProviderResult, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	raw, err := c.store.Get(ctx, ResultKey(provider, query))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.WithError(err).WithField("provider", provider).Warn("Result cache read failed")
		}
		return nil, false
	}

	var result models.ProviderResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.WithError(err).WithField("provider", provider).Warn("Discarding undecodable cached result")
		return nil, false
	}
	return &result, true
}

// Put caches a successful real result; mocks and failures are ignored
func (c *ResultCache) Put(ctx context.Context, provider models.ProviderID, query models.ProviderQuery, result *models.ProviderResult) {
	if c == nil || c.ttl <= 0 || result == nil || !result.Success || result.IsMock {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).WithField("provider", provider).Warn("Result not cacheable")
		return
	}
	_ = c.store.Set(ctx, ResultKey(provider, query), string(data), c.ttl)
}
