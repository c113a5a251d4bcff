package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scan_records (
		scan_id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL DEFAULT '',
		content_fingerprint TEXT NOT NULL,
		classification TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		risk_tier TEXT NOT NULL,
		explanation TEXT NOT NULL,
		findings JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL,
		processing_time_ms BIGINT NOT NULL,
		source_address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_records_created ON scan_records (created_at DESC, scan_id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_records_requester ON scan_records (requester_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS api_credentials (
		credential_id TEXT PRIMARY KEY,
		credential_hash TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		last_used_at TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// PostgresStore is a pgx implementation of the RecordStore and CredentialStore interfaces
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists
func NewPostgresStore(ctx context.Context, url string, retries int, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := connectWithRetry(ctx, retries, logger, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create postgres schema: %w", err)
		}
	}

	logger.Info("Opened scan record store", zap.String("type", "postgres"))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Save inserts a scan record
func (s *PostgresStore) Save(ctx context.Context, record *core.ScanRecord) error {
	findings, err := encodeFindings(record.Findings)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_records (scan_id, requester_id, content_fingerprint, classification,
			confidence, risk_tier, explanation, findings, created_at, processing_time_ms, source_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
	`, record.ScanID, record.RequesterID, record.ContentFingerprint, string(record.Classification),
		record.Confidence, string(record.RiskTier), record.Explanation, findings,
		record.CreatedAt, record.ProcessingTimeMs, record.SourceAddress)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

// List returns records newest first, ties broken by scan ID descending
func (s *PostgresStore) List(ctx context.Context, q core.HistoryQuery) ([]core.ScanRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT scan_id, requester_id, content_fingerprint, classification, confidence, risk_tier,
			explanation, findings::text, created_at, processing_time_ms, source_address
		FROM scan_records
		WHERE ($1 = '' OR requester_id = $1)
		ORDER BY created_at DESC, scan_id DESC
		LIMIT $2 OFFSET $3
	`, q.RequesterID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer rows.Close()

	records := make([]core.ScanRecord, 0, q.Limit)
	for rows.Next() {
		var (
			r                    core.ScanRecord
			classification, tier string
			findings             string
		)
		if err := rows.Scan(&r.ScanID, &r.RequesterID, &r.ContentFingerprint, &classification,
			&r.Confidence, &tier, &r.Explanation, &findings, &r.CreatedAt,
			&r.ProcessingTimeMs, &r.SourceAddress); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		r.Classification = core.Classification(classification)
		r.RiskTier = core.RiskTier(tier)
		r.CreatedAt = r.CreatedAt.UTC()
		if r.Findings, err = decodeFindings(findings); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan records: %w", err)
	}
	return records, nil
}

// Ping checks the pool connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create stores a new credential
func (s *PostgresStore) Create(ctx context.Context, cred *core.ApiCredential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_credentials (credential_id, credential_hash, label, description, created_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, cred.CredentialID, cred.CredentialHash, cred.Label, cred.Description, cred.CreatedAt, cred.Active)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// FindByHash returns the credential with the given secret hash
func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*core.ApiCredential, error) {
	var c core.ApiCredential
	err := s.pool.QueryRow(ctx, `
		SELECT credential_id, credential_hash, label, description, created_at, last_used_at, active
		FROM api_credentials
		WHERE credential_hash = $1
	`, hash).Scan(&c.CredentialID, &c.CredentialHash, &c.Label, &c.Description, &c.CreatedAt, &c.LastUsedAt, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Touch records the last use of a credential
func (s *PostgresStore) Touch(ctx context.Context, credentialID string, usedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_credentials SET last_used_at = $2 WHERE credential_id = $1`, credentialID, usedAt)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
