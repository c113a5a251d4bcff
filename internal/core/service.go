package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/email-guardian/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryLimit is the page size used when the caller gives none
	DefaultHistoryLimit = 10
	// MaxHistoryLimit is the largest page size served
	MaxHistoryLimit = 100

	defaultWriteTimeout = 5 * time.Second
)

// ScanService is the core service for email classification
type ScanService struct {
	matcher       *PatternMatcher
	signals       *AISignalClient
	combiner      *VerdictCombiner
	records       RecordStore
	clock         Clock
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	writeTimeout  time.Duration
}

// NewScanService creates a new scan service
func NewScanService(
	matcher *PatternMatcher,
	signals *AISignalClient,
	combiner *VerdictCombiner,
	records RecordStore,
	clock Clock,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	writeTimeout time.Duration,
) *ScanService {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &ScanService{
		matcher:       matcher,
		signals:       signals,
		combiner:      combiner,
		records:       records,
		clock:         clock,
		textProcessor: textProcessor,
		logger:        logger,
		writeTimeout:  writeTimeout,
	}
}

// AIEnabled reports whether scans consult an AI oracle
func (s *ScanService) AIEnabled() bool {
	return s.signals.Enabled()
}

// ValidateScanRequest checks the request before any classification runs
func ValidateScanRequest(req ScanRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return &ValidationError{Field: "text", Reason: "email text cannot be empty"}
	}
	if utils.CharCount(req.Text) > MaxTextLength {
		return &ValidationError{Field: "text", Reason: "email text too large (max 50000 characters)"}
	}
	return nil
}

// Fingerprint returns the one-way hash recorded in place of the content.
// Scan passes it the normalised text, so resubmissions that differ only in
// markup or line wrapping correlate.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Scan classifies one request and records the outcome.
// When the record cannot be stored the result is still returned, together
// with a *PersistenceError.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	start := time.Now()

	if err := ValidateScanRequest(req); err != nil {
		return nil, err
	}

	text := s.textProcessor.Normalize(req.Text)

	// buffered so an abandoned call can still deliver and exit
	signalCh := make(chan *AISignal, 1)
	if s.signals.Enabled() {
		go func() {
			signalCh <- s.signals.Signal(ctx, text)
		}()
	} else {
		signalCh <- nil
	}

	pattern := s.matcher.Match(text)

	var signal *AISignal
	select {
	case signal = <-signalCh:
	case <-ctx.Done():
		s.logger.Info("Caller cancelled, abandoning AI call", zap.Error(ctx.Err()))
	}

	verdict := s.combiner.Combine(pattern, signal)
	elapsed := time.Since(start).Milliseconds()

	result := &ScanResult{
		ScanID:           uuid.NewString(),
		Verdict:          verdict,
		CreatedAt:        s.clock.Now(),
		ProcessingTimeMs: elapsed,
	}

	record := &ScanRecord{
		ScanID:             result.ScanID,
		RequesterID:        req.RequesterID,
		ContentFingerprint: Fingerprint(text),
		Classification:     verdict.Classification,
		Confidence:         verdict.Confidence,
		RiskTier:           verdict.RiskTier,
		Explanation:        verdict.Explanation,
		Findings:           verdict.Findings,
		CreatedAt:          result.CreatedAt,
		ProcessingTimeMs:   elapsed,
		SourceAddress:      req.SourceAddress,
	}

	// the verdict is already computed, so store it even if the caller left
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if err := s.records.Save(writeCtx, record); err != nil {
		s.logger.Error("Failed to persist scan record",
			zap.Error(err),
			zap.String("scan_id", result.ScanID))
		return result, &PersistenceError{ScanID: result.ScanID, Err: err}
	}
	result.Persisted = true

	s.logger.Info("Scanned email",
		zap.String("scan_id", result.ScanID),
		zap.String("classification", string(verdict.Classification)),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("risk_tier", string(verdict.RiskTier)),
		zap.Int("findings", len(verdict.Findings)),
		zap.Bool("ai_used", verdict.AIUsed),
		zap.Int64("processing_time_ms", elapsed))

	return result, nil
}

// History returns a page of past scans, newest first
func (s *ScanService) History(ctx context.Context, query HistoryQuery) (*HistoryPage, error) {
	if query.Limit < 1 || query.Limit > MaxHistoryLimit {
		return nil, &ValidationError{Field: "limit", Reason: "limit must be between 1 and 100"}
	}
	if query.Offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "offset must be non-negative"}
	}

	records, err := s.records.List(ctx, query)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HistoryEntry{
			ScanID:           r.ScanID,
			Classification:   r.Classification,
			Confidence:       r.Confidence,
			RiskTier:         r.RiskTier,
			CreatedAt:        r.CreatedAt,
			ProcessingTimeMs: r.ProcessingTimeMs,
		})
	}

	return &HistoryPage{
		Entries: entries,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}, nil
}

// Ping checks the record store
func (s *ScanService) Ping(ctx context.Context) error {
	return s.records.Ping(ctx)
}
