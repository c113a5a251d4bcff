package factory

import (
	"context"
	"fmt"

	"github.com/mikey/email-guardian/internal/adapters/ratelimit"
	"github.com/mikey/email-guardian/internal/config"
	"go.uber.org/zap"
)

// LimiterFactory creates the request rate limiter
type LimiterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLimiterFactory creates a new limiter factory
func NewLimiterFactory(cfg *config.Config, logger *zap.Logger) *LimiterFactory {
	return &LimiterFactory{cfg: cfg, logger: logger}
}

// CreateLimiter returns the configured limiter, or nil when rate limiting is disabled
func (f *LimiterFactory) CreateLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	rl := f.cfg.GetRateLimit()
	if !rl.Enabled {
		return nil, nil
	}
	if rl.MaxRequests <= 0 {
		return nil, fmt.Errorf("ratelimit.max_requests must be positive")
	}

	switch rl.Type {
	case "memory":
		return ratelimit.NewMemoryLimiter(rl.MaxRequests, rl.Window, f.logger), nil
	case "redis":
		r := f.cfg.GetRedis()
		l, err := ratelimit.NewRedisLimiter(ctx, ratelimit.RedisOptions{
			Address:   r.Address,
			Password:  r.Password,
			DB:        r.DB,
			KeyPrefix: r.KeyPrefix,
		}, rl.MaxRequests, rl.Window, f.logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter type: %s", rl.Type)
	}
}
