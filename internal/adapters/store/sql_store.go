package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// dialect holds the driver name and schema for a database/sql backend
type dialect struct {
	name   string
	driver string
	schema []string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS scan_records (
			scan_id TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL DEFAULT '',
			content_fingerprint TEXT NOT NULL,
			classification TEXT NOT NULL,
			confidence REAL NOT NULL,
			risk_tier TEXT NOT NULL,
			explanation TEXT NOT NULL,
			findings TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			source_address TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_records_created ON scan_records(created_at DESC, scan_id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_records_requester ON scan_records(requester_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS api_credentials (
			credential_id TEXT PRIMARY KEY,
			credential_hash TEXT NOT NULL UNIQUE,
			label TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			last_used_at INTEGER,
			active BOOLEAN NOT NULL DEFAULT 1
		)`,
	},
}

var mysqlDialect = dialect{
	name:   "mysql",
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS scan_records (
			scan_id VARCHAR(36) PRIMARY KEY,
			requester_id VARCHAR(255) NOT NULL DEFAULT '',
			content_fingerprint CHAR(64) NOT NULL,
			classification VARCHAR(16) NOT NULL,
			confidence DOUBLE NOT NULL,
			risk_tier VARCHAR(16) NOT NULL,
			explanation TEXT NOT NULL,
			findings TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			processing_time_ms BIGINT NOT NULL,
			source_address VARCHAR(64) NOT NULL DEFAULT '',
			INDEX idx_scan_records_created (created_at, scan_id),
			INDEX idx_scan_records_requester (requester_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS api_credentials (
			credential_id VARCHAR(36) PRIMARY KEY,
			credential_hash CHAR(64) NOT NULL UNIQUE,
			label VARCHAR(50) NOT NULL,
			description TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			last_used_at BIGINT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
	},
}

// SQLStore is a database/sql implementation of the RecordStore and
// CredentialStore interfaces, shared by the SQLite and MySQL backends.
// Timestamps are stored as Unix microseconds so ordering is exact.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewSQLiteStore opens (creating if needed) a SQLite database file
func NewSQLiteStore(ctx context.Context, dbPath string, logger *zap.Logger) (*SQLStore, error) {
	// SQLite allows one writer at a time.
	s, err := openSQLStore(ctx, sqliteDialect, dbPath+"?_busy_timeout=5000", 0, logger)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

// NewMySQLStore connects to MySQL, retrying while the server comes up
func NewMySQLStore(ctx context.Context, dsn string, retries int, logger *zap.Logger) (*SQLStore, error) {
	return openSQLStore(ctx, mysqlDialect, dsn, retries, logger)
}

func openSQLStore(ctx context.Context, d dialect, dsn string, retries int, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}

	if err := connectWithRetry(ctx, retries, logger, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	logger.Info("Opened scan record store", zap.String("type", d.name))
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Save inserts a scan record
func (s *SQLStore) Save(ctx context.Context, record *core.ScanRecord) error {
	findings, err := encodeFindings(record.Findings)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scan_records (scan_id, requester_id, content_fingerprint, classification,
			confidence, risk_tier, explanation, findings, created_at, processing_time_ms, source_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ScanID, record.RequesterID, record.ContentFingerprint, string(record.Classification),
		record.Confidence, string(record.RiskTier), record.Explanation, findings,
		record.CreatedAt.UnixMicro(), record.ProcessingTimeMs, record.SourceAddress)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

// List returns records newest first, ties broken by scan ID descending
func (s *SQLStore) List(ctx context.Context, q core.HistoryQuery) ([]core.ScanRecord, error) {
	query := `
		SELECT scan_id, requester_id, content_fingerprint, classification, confidence, risk_tier,
			explanation, findings, created_at, processing_time_ms, source_address
		FROM scan_records`
	var args []any
	if q.RequesterID != "" {
		query += ` WHERE requester_id = ?`
		args = append(args, q.RequesterID)
	}
	query += ` ORDER BY created_at DESC, scan_id DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
			createdAt            int64
		)
		if err := rows.Scan(&r.ScanID, &r.RequesterID, &r.ContentFingerprint, &classification,
			&r.Confidence, &tier, &r.Explanation, &findings, &createdAt,
			&r.ProcessingTimeMs, &r.SourceAddress); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		r.Classification = core.Classification(classification)
		r.RiskTier = core.RiskTier(tier)
		r.CreatedAt = time.UnixMicro(createdAt).UTC()
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

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create stores a new credential
func (s *SQLStore) Create(ctx context.Context, cred *core.ApiCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_credentials (credential_id, credential_hash, label, description, created_at, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cred.CredentialID, cred.CredentialHash, cred.Label, cred.Description,
		cred.CreatedAt.UnixMicro(), cred.Active)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// FindByHash returns the credential with the given secret hash
func (s *SQLStore) FindByHash(ctx context.Context, hash string) (*core.ApiCredential, error) {
	var (
		c         core.ApiCredential
		createdAt int64
		lastUsed  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT credential_id, credential_hash, label, description, created_at, last_used_at, active
		FROM api_credentials
		WHERE credential_hash = ?
	`, hash).Scan(&c.CredentialID, &c.CredentialHash, &c.Label, &c.Description, &createdAt, &lastUsed, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	c.CreatedAt = time.UnixMicro(createdAt).UTC()
	if lastUsed.Valid {
		t := time.UnixMicro(lastUsed.Int64).UTC()
		c.LastUsedAt = &t
	}
	return &c, nil
}

// Touch records the last use of a credential
func (s *SQLStore) Touch(ctx context.Context, credentialID string, usedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_credentials SET last_used_at = ? WHERE credential_id = ?
	`, usedAt.UnixMicro(), credentialID)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("type", s.dialect.name), zap.Error(err))
		return err
	}
	return nil
}

func encodeFindings(findings []core.PatternFinding) (string, error) {
	if findings == nil {
		findings = []core.PatternFinding{}
	}
	b, err := json.Marshal(findings)
	if err != nil {
		return "", fmt.Errorf("failed to encode findings: %w", err)
	}
	return string(b), nil
}

func decodeFindings(raw string) ([]core.PatternFinding, error) {
	var findings []core.PatternFinding
	if raw == "" {
		return []core.PatternFinding{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &findings); err != nil {
		return nil, fmt.Errorf("failed to decode findings: %w", err)
	}
	return findings, nil
}
