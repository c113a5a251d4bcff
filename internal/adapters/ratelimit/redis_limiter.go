package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// incrWindow bumps the window counter and sets its expiry on first use, in one round trip
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter is a fixed-window limiter shared by every replica through Redis
type RedisLimiter struct {
	client      redis.Scripter
	prefix      string
	maxRequests int
	window      time.Duration
	now         func() time.Time
	closer      func() error
	logger      *zap.Logger
}

// RedisOptions holds the connection settings for NewRedisLimiter
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisLimiter connects to Redis and returns a limiter backed by it
func NewRedisLimiter(ctx context.Context, opts RedisOptions, maxRequests int, window time.Duration, logger *zap.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l := NewRedisLimiterWithClient(client, opts.KeyPrefix, maxRequests, window, logger)
	l.closer = client.Close
	return l, nil
}

// NewRedisLimiterWithClient wraps an existing client
func NewRedisLimiterWithClient(client redis.Scripter, prefix string, maxRequests int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		logger:      logger,
	}
}

// Allow increments the client's counter for the current window
func (l *RedisLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	key := l.key(clientKey, l.now())

	count, err := incrWindow.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	if count > int64(l.maxRequests) {
		l.logger.Debug("Rate limit exceeded", zap.String("client", clientKey), zap.Int64("count", count))
		return false, nil
	}
	return true, nil
}

func (l *RedisLimiter) key(clientKey string, now time.Time) string {
	bucket := now.UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", l.prefix, clientKey, bucket)
}

// Close releases the Redis connection when the limiter owns it
func (l *RedisLimiter) Close() error {
	if l.closer != nil {
		return l.closer()
	}
	return nil
}
