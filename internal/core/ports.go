package core

import (
	"context"
	"time"
)

// ToxicityOracle defines the interface for remote content classifiers
type ToxicityOracle interface {
	// Classify scores a text and returns the oracle's raw label
	Classify(ctx context.Context, text string) (*OracleResult, error)
}

// RecordStore defines the interface for the append-only scan audit log
type RecordStore interface {
	// Save stores a new record; records are never updated
	Save(ctx context.Context, record *ScanRecord) error

	// List returns records ordered by CreatedAt then ScanID, newest first
	List(ctx context.Context, query HistoryQuery) ([]ScanRecord, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// CredentialStore defines the interface for API credential persistence
type CredentialStore interface {
	// Create stores a newly issued credential
	Create(ctx context.Context, cred *ApiCredential) error

	// FindByHash returns the credential with the given secret hash
	FindByHash(ctx context.Context, hash string) (*ApiCredential, error)

	// Touch records a successful use of a credential
	Touch(ctx context.Context, credentialID string, usedAt time.Time) error
}

// RateLimiter defines the interface for per-client request budgets
type RateLimiter interface {
	// Allow reports whether the client may make another request
	Allow(ctx context.Context, clientKey string) (bool, error)
}
