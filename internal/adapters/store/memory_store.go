package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the RecordStore and
// CredentialStore interfaces. Contents are lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	records     []core.ScanRecord
	credentials map[string]*core.ApiCredential // keyed by hash
	logger      *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		credentials: make(map[string]*core.ApiCredential),
		logger:      logger,
	}
}

// Save appends a scan record
func (s *MemoryStore) Save(ctx context.Context, record *core.ScanRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := *record
	rec.Findings = append([]core.PatternFinding(nil), record.Findings...)

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// List returns records newest first, ties broken by scan ID descending
func (s *MemoryStore) List(ctx context.Context, q core.HistoryQuery) ([]core.ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]core.ScanRecord, 0, len(s.records))
	for _, r := range s.records {
		if q.RequesterID == "" || r.RequesterID == q.RequesterID {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i], matched[j])
	})

	return page(matched, q.Offset, q.Limit), nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Create stores a new credential
func (s *MemoryStore) Create(ctx context.Context, cred *core.ApiCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[cred.CredentialHash]; exists {
		return ErrDuplicateCredential
	}
	c := *cred
	s.credentials[cred.CredentialHash] = &c
	return nil
}

// FindByHash returns the credential with the given secret hash
func (s *MemoryStore) FindByHash(ctx context.Context, hash string) (*core.ApiCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[hash]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := *c
	return &out, nil
}

// Touch records the last use of a credential
func (s *MemoryStore) Touch(ctx context.Context, credentialID string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.credentials {
		if c.CredentialID == credentialID {
			t := usedAt
			c.LastUsedAt = &t
			return nil
		}
	}
	return core.ErrNotFound
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func newerFirst(a, b core.ScanRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ScanID > b.ScanID
}

func page(records []core.ScanRecord, offset, limit int) []core.ScanRecord {
	if offset >= len(records) {
		return []core.ScanRecord{}
	}
	records = records[offset:]
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
