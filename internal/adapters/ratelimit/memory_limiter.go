// Package ratelimit holds per-client request budgets for the HTTP API.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryLimiter is a sliding-window limiter kept in process memory
type MemoryLimiter struct {
	mu          sync.Mutex
	hits        map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
	logger      *zap.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryLimiter creates a limiter allowing maxRequests per window per client
func NewMemoryLimiter(maxRequests int, window time.Duration, logger *zap.Logger) *MemoryLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &MemoryLimiter{
		hits:        make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	go l.startCleanupTask()

	return l
}

// Allow records a request for the client and reports whether it fits the budget
func (l *MemoryLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.hits[clientKey], cutoff)
	if len(recent) >= l.maxRequests {
		l.hits[clientKey] = recent
		return false, nil
	}
	l.hits[clientKey] = append(recent, now)
	return true, nil
}

// Cleanup drops clients with no requests inside the window
func (l *MemoryLimiter) Cleanup() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, hits := range l.hits {
		if recent := prune(hits, cutoff); len(recent) == 0 {
			delete(l.hits, key)
			removed++
		} else {
			l.hits[key] = recent
		}
	}
	if removed > 0 {
		l.logger.Debug("Dropped idle rate limit entries", zap.Int("count", removed))
	}
}

func (l *MemoryLimiter) startCleanupTask() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Close stops the background cleanup task
func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	return nil
}

// prune drops timestamps at or before cutoff; hits are kept in arrival order
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Limiter is a RateLimiter holding resources that must be released
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
	Close() error
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
