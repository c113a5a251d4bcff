// Package store holds the scan record and credential persistence backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/email-guardian/internal/core"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ErrDuplicateCredential is returned when a credential hash is already stored
var ErrDuplicateCredential = errors.New("credential already exists")

// Store is a backend that persists both scan records and credentials
type Store interface {
	core.RecordStore
	core.CredentialStore
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// connectWithRetry retries a connection check with a Fibonacci backoff
func connectWithRetry(ctx context.Context, retries int, logger *zap.Logger, ping func(context.Context) error) error {
	if retries < 0 {
		retries = 0
	}
	b := retry.NewFibonacci(500 * time.Millisecond)
	attempt := 0
	return retry.Do(ctx, retry.WithMaxRetries(uint64(retries), b), func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.Warn("Store not reachable yet", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
}
