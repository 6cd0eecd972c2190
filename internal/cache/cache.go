package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache: key not found")

// Store is a key/value cache backed by Redis with an in-memory fallback used
// when Redis is not configured or returns an error.
type Store struct {
	client *redis.Client
	logger *logrus.Logger

	memCache map[string]cacheItem
	memMutex sync.RWMutex
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

// NewStore creates a cache store. client may be nil.
func NewStore(client *redis.Client, logger *logrus.Logger) *Store {
	return &Store{
		client:   client,
		logger:   logger,
		memCache: make(map[string]cacheItem),
	}
}

// Redis returns the underlying client, nil when running memory-only
func (s *Store) Redis() *redis.Client {
	return s.client
}

// Get retrieves a value from cache
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if s.client != nil {
		val, err := s.client.Get(ctx, key).Result()
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis get error, falling back to memory cache")
		}
	}

	s.memMutex.RLock()
	item, exists := s.memCache[key]
	s.memMutex.RUnlock()

	if !exists {
		return "", ErrMiss
	}

	if time.Now().After(item.expiresAt) {
		s.memMutex.Lock()
		delete(s.memCache, key)
		s.memMutex.Unlock()
		return "", ErrMiss
	}

	return item.value, nil
}

// Set stores a value with the given TTL
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.client != nil {
		err := s.client.Set(ctx, key, value, ttl).Err()
		if err == nil {
			return nil
		}
		s.logger.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Redis set error, falling back to memory cache")
	}

	s.memMutex.Lock()
	s.memCache[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	s.memMutex.Unlock()

	return nil
}

// Delete removes a value from cache
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.client != nil {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis delete error")
		}
	}

	s.memMutex.Lock()
	delete(s.memCache, key)
	s.memMutex.Unlock()

	return nil
}

// Health returns cache health status
func (s *Store) Health(ctx context.Context) map[string]interface{} {
	health := make(map[string]interface{})

	if s.client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := s.client.Ping(pingCtx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{"status": "healthy"}
		}
	} else {
		health["redis"] = map[string]interface{}{"status": "disabled"}
	}

	s.memMutex.RLock()
	size := len(s.memCache)
	s.memMutex.RUnlock()

	health["memory"] = map[string]interface{}{
		"status": "healthy",
		"size":   size,
	}

	return health
}

func (s *Store) cleanupExpired() {
	s.memMutex.Lock()
	defer s.memMutex.Unlock()

	now := time.Now()
	for key, item := range s.memCache {
		if now.After(item.expiresAt) {
			delete(s.memCache, key)
		}
	}
}

// StartCleanupRoutine periodically drops expired memory entries until ctx
// is cancelled
func (s *Store) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}
