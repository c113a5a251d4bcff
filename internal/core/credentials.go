package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	secretBytes    = 32
	minLabelLength = 3
	maxLabelLength = 50
)

// CredentialService issues and verifies API credentials
type CredentialService struct {
	store  CredentialStore
	clock  Clock
	logger *zap.Logger
}

// NewCredentialService creates a new credential service
func NewCredentialService(store CredentialStore, clock Clock, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// HashSecret returns the stored form of a secret
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Issue creates a credential and returns its secret. The secret is not kept
// anywhere and cannot be recovered later.
func (s *CredentialService) Issue(ctx context.Context, label, description string) (string, *ApiCredential, error) {
	label = strings.TrimSpace(label)
	if n := utf8.RuneCountInString(label); n < minLabelLength {
		return "", nil, &ValidationError{Field: "label", Reason: "label must be at least 3 characters"}
	} else if n > maxLabelLength {
		return "", nil, &ValidationError{Field: "label", Reason: "label too long (max 50 characters)"}
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	cred := &ApiCredential{
		CredentialID:   uuid.NewString(),
		CredentialHash: HashSecret(secret),
		Label:          label,
		Description:    strings.TrimSpace(description),
		CreatedAt:      s.clock.Now(),
		Active:         true,
	}

	if err := s.store.Create(ctx, cred); err != nil {
		return "", nil, fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Info("Issued API credential",
		zap.String("credential_id", cred.CredentialID),
		zap.String("label", cred.Label))

	return secret, cred, nil
}

// Verify resolves a secret to an active credential
func (s *CredentialService) Verify(ctx context.Context, secret string) (*ApiCredential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrUnauthorized
	}

	cred, err := s.store.FindByHash(ctx, HashSecret(secret))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if !cred.Active {
		return nil, ErrUnauthorized
	}

	usedAt := s.clock.Now()
	if err := s.store.Touch(ctx, cred.CredentialID, usedAt); err != nil {
		s.logger.Warn("Failed to record credential use",
			zap.Error(err),
			zap.String("credential_id", cred.CredentialID))
	} else {
		cred.LastUsedAt = &usedAt
	}

	return cred, nil
}
