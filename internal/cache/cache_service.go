// Package cache provides Redis-based caching for analysis results with
// graceful degradation. When Redis is unavailable, operations return errors
// that callers handle by recomputing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CacheService wraps Redis with a small circuit breaker so a flapping Redis
// does not add latency to every request.
type CacheService struct {
	client       *redis.Client
	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time
	log          zerolog.Logger

	maxFailures   int
	checkInterval time.Duration
}

// Key prefixes for the cache types the engine stores
const (
	prefixTextResult = "nlp:text:%s"       // keyed by text hash
	prefixReport     = "report:user:%s"    // latest behavior report per user
	prefixSnapshot   = "market:symbol:%s"  // latest market snapshot per symbol
)

// Default TTLs
const (
	TextResultTTL = 10 * time.Minute
	ReportTTL     = time.Hour
	SnapshotTTL   = time.Minute
)

// NewCacheService wraps an existing Redis client. The client may be shared
// with the session tracker.
func NewCacheService(client *redis.Client, log zerolog.Logger) *CacheService {
	cs := &CacheService{
		client:        client,
		healthy:       false,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
		log:           log.With().Str("component", "cache").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.log.Warn().Err(err).Msg("initial redis connection failed, cache degraded")
		return cs
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	return cs
}

// IsHealthy returns whether Redis is currently available.
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures {
		if cs.healthy {
			cs.log.Warn().Int("failures", cs.failureCount).Msg("circuit breaker open, redis marked unhealthy")
		}
		cs.healthy = false
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy {
		cs.log.Info().Msg("circuit breaker closed, redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = time.Now()
}

// checkHealth probes Redis in the background once the check interval has
// passed while unhealthy.
func (cs *CacheService) checkHealth() {
	cs.mu.RLock()
	shouldCheck := !cs.healthy && time.Since(cs.lastCheck) >= cs.checkInterval
	cs.mu.RUnlock()

	if !shouldCheck {
		return
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := cs.client.Ping(pingCtx).Err(); err == nil {
			cs.recordSuccess()
		} else {
			cs.mu.Lock()
			cs.lastCheck = time.Now()
			cs.mu.Unlock()
		}
	}()
}

// GetJSON retrieves and unmarshals a cached value. Returns redis.Nil on a
// cache miss.
func (cs *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	cs.checkHealth()

	if !cs.IsHealthy() {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	data, err := cs.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return err // cache miss, not a failure
		}
		cs.recordFailure()
		return fmt.Errorf("redis get failed: %w", err)
	}
	cs.recordSuccess()

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON marshals and stores a value with TTL.
func (cs *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	cs.checkHealth()

	if !cs.IsHealthy() {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := cs.client.Set(ctx, key, data, ttl).Err(); err != nil {
		cs.recordFailure()
		return fmt.Errorf("redis set failed: %w", err)
	}
	cs.recordSuccess()
	return nil
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.checkHealth()

	if !cs.IsHealthy() {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	if err := cs.client.Del(ctx, key).Err(); err != nil {
		cs.recordFailure()
		return fmt.Errorf("redis delete failed: %w", err)
	}
	cs.recordSuccess()
	return nil
}

// Stats returns cache statistics for monitoring.
type Stats struct {
	Healthy      bool `json:"healthy"`
	FailureCount int  `json:"failure_count"`
}

// GetStats returns current cache statistics.
func (cs *CacheService) GetStats() Stats {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Stats{Healthy: cs.healthy, FailureCount: cs.failureCount}
}

// TextResultKey generates the cache key for an analyzed note. Notes repeat
// often enough (templated journals, retries) that hashing the text pays off.
func TextResultKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf(prefixTextResult, hex.EncodeToString(sum[:16]))
}

// ReportKey generates the cache key for a user's latest behavior report.
func ReportKey(userID string) string {
	return fmt.Sprintf(prefixReport, userID)
}

// SnapshotKey generates the cache key for a symbol's market snapshot.
func SnapshotKey(symbol string) string {
	return fmt.Sprintf(prefixSnapshot, symbol)
}
