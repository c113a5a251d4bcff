package core

import (
	"time"
)

// MaxTextLength is the largest scan input accepted, counted in characters
const MaxTextLength = 50000

// Classification is the externally visible verdict label
type Classification string

const (
	ClassificationSafe       Classification = "safe"
	ClassificationSuspicious Classification = "suspicious"
)

// RiskTier buckets a combined confidence
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// RuleCategory groups pattern rules
type RuleCategory string

const (
	CategoryPhishing RuleCategory = "phishing"
	CategorySpam     RuleCategory = "spam"
)

// SignalLabel is the AI oracle's leaning
type SignalLabel string

const (
	LabelToxic SignalLabel = "toxic"
	LabelSafe  SignalLabel = "safe"
)

// ScanRequest is a single classification request
type ScanRequest struct {
	Text          string
	RequesterID   string
	SourceAddress string
}

// PatternFinding is one triggered rule
type PatternFinding struct {
	RuleID      string       `json:"rule_id"`
	Category    RuleCategory `json:"category"`
	Source      string       `json:"source"`
	Description string       `json:"description"`
}

// PatternVerdict is the outcome of running the rule table over a text
type PatternVerdict struct {
	MatchCount     int
	Findings       []PatternFinding
	Confidence     float64
	Classification Classification
	Explanation    string
}

// AISignal is the optional verdict of the remote oracle
type AISignal struct {
	Label       SignalLabel
	Score       float64
	Explanation string
	Model       string
}

// OracleResult is the raw answer of a toxicity oracle
type OracleResult struct {
	Label string
	Score float64
	Model string
}

// Verdict is the combined classification returned to callers
type Verdict struct {
	Classification Classification
	Confidence     float64
	RiskTier       RiskTier
	Explanation    string
	Findings       []PatternFinding
	AIUsed         bool
}

// ScanRecord is the persisted audit entry of a completed scan
type ScanRecord struct {
	ScanID             string
	RequesterID        string
	ContentFingerprint string
	Classification     Classification
	Confidence         float64
	RiskTier           RiskTier
	Explanation        string
	Findings           []PatternFinding
	CreatedAt          time.Time
	ProcessingTimeMs   int64
	SourceAddress      string
}

// ScanResult is what ScanService hands back to front ends
type ScanResult struct {
	ScanID           string
	Verdict          Verdict
	CreatedAt        time.Time
	ProcessingTimeMs int64
	Persisted        bool
}

// HistoryQuery selects a page of scan records
type HistoryQuery struct {
	RequesterID string
	Limit       int
	Offset      int
}

// HistoryEntry is the public projection of a ScanRecord
type HistoryEntry struct {
	ScanID           string
	Classification   Classification
	Confidence       float64
	RiskTier         RiskTier
	CreatedAt        time.Time
	ProcessingTimeMs int64
}

// HistoryPage is one page of history
type HistoryPage struct {
	Entries []HistoryEntry
	Limit   int
	Offset  int
}

// ApiCredential is a stored API key. The secret itself is never kept.
type ApiCredential struct {
	CredentialID   string
	CredentialHash string
	Label          string
	Description    string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	Active         bool
}
