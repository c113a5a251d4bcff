package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCredentialStore struct {
	mu     sync.Mutex
	byHash map[string]*ApiCredential
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{byHash: make(map[string]*ApiCredential)}
}

func (s *fakeCredentialStore) Create(ctx context.Context, cred *ApiCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.byHash[cred.CredentialHash] = &c
	return nil
}

func (s *fakeCredentialStore) FindByHash(ctx context.Context, hash string) (*ApiCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *fakeCredentialStore) Touch(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byHash {
		if c.CredentialID == id {
			c.LastUsedAt = &usedAt
			return nil
		}
	}
	return ErrNotFound
}

func newTestCredentialService(store CredentialStore) *CredentialService {
	return NewCredentialService(store, &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, zap.NewNop())
}

func TestIssueNeverStoresSecret(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newTestCredentialService(store)

	secret, cred, err := svc.Issue(context.Background(), "  ci pipeline  ", "nightly job")

	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Equal(t, "ci pipeline", cred.Label)
	assert.True(t, cred.Active)
	assert.Equal(t, HashSecret(secret), cred.CredentialHash)
	for hash, stored := range store.byHash {
		assert.NotEqual(t, secret, hash)
		assert.NotEqual(t, secret, stored.CredentialHash)
	}
}

func TestIssueSecretsDiffer(t *testing.T) {
	svc := newTestCredentialService(newFakeCredentialStore())

	a, _, err := svc.Issue(context.Background(), "first", "")
	require.NoError(t, err)
	b, _, err := svc.Issue(context.Background(), "second", "")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestIssueValidatesLabel(t *testing.T) {
	svc := newTestCredentialService(newFakeCredentialStore())

	for _, label := range []string{"", "ab", "   x  ", string(make([]byte, 51))} {
		_, _, err := svc.Issue(context.Background(), label, "")
		assert.True(t, IsValidation(err), "label %q", label)
	}
}

func TestVerify(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newTestCredentialService(store)
	secret, issued, err := svc.Issue(context.Background(), "dashboard", "")
	require.NoError(t, err)

	cred, err := svc.Verify(context.Background(), secret)

	require.NoError(t, err)
	assert.Equal(t, issued.CredentialID, cred.CredentialID)
	require.NotNil(t, cred.LastUsedAt)
	assert.NotNil(t, store.byHash[issued.CredentialHash].LastUsedAt)
}

func TestVerifyRejects(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newTestCredentialService(store)
	secret, issued, err := svc.Issue(context.Background(), "revoked key", "")
	require.NoError(t, err)
	store.byHash[issued.CredentialHash].Active = false

	tests := map[string]string{
		"missing":  "",
		"unknown":  "not-a-real-secret",
		"inactive": secret,
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), s)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
