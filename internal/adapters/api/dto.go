package api

import (
	"time"

	"github.com/mikey/email-guardian/internal/core"
)

// scanRequest accepts both the current field names and the legacy
// email_text/user_id names
type scanRequest struct {
	Text        string `json:"text"`
	EmailText   string `json:"email_text"`
	RequesterID string `json:"requester_id"`
	UserID      string `json:"user_id"`
}

func (r scanRequest) text() string {
	if r.Text != "" {
		return r.Text
	}
	return r.EmailText
}

func (r scanRequest) requester() string {
	if r.RequesterID != "" {
		return r.RequesterID
	}
	return r.UserID
}

type scanResponse struct {
	ScanID           string                `json:"scan_id"`
	Classification   core.Classification   `json:"classification"`
	Confidence       float64               `json:"confidence"`
	RiskTier         core.RiskTier         `json:"risk_tier"`
	Explanation      string                `json:"explanation"`
	Findings         []core.PatternFinding `json:"findings"`
	AIUsed           bool                  `json:"ai_used"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	CreatedAt        time.Time             `json:"created_at"`
	Persisted        bool                  `json:"persisted"`
}

func newScanResponse(res *core.ScanResult) scanResponse {
	findings := res.Verdict.Findings
	if findings == nil {
		findings = []core.PatternFinding{}
	}
	return scanResponse{
		ScanID:           res.ScanID,
		Classification:   res.Verdict.Classification,
		Confidence:       res.Verdict.Confidence,
		RiskTier:         res.Verdict.RiskTier,
		Explanation:      res.Verdict.Explanation,
		Findings:         findings,
		AIUsed:           res.Verdict.AIUsed,
		ProcessingTimeMs: res.ProcessingTimeMs,
		CreatedAt:        res.CreatedAt,
		Persisted:        res.Persisted,
	}
}

type historyRecord struct {
	ScanID           string              `json:"scan_id"`
	Classification   core.Classification `json:"classification"`
	Confidence       float64             `json:"confidence"`
	RiskTier         core.RiskTier       `json:"risk_tier"`
	CreatedAt        time.Time           `json:"created_at"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
}

type historyResponse struct {
	Records []historyRecord `json:"records"`
	Count   int             `json:"count"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func newHistoryResponse(page *core.HistoryPage) historyResponse {
	records := make([]historyRecord, 0, len(page.Entries))
	for _, e := range page.Entries {
		records = append(records, historyRecord{
			ScanID:           e.ScanID,
			Classification:   e.Classification,
			Confidence:       e.Confidence,
			RiskTier:         e.RiskTier,
			CreatedAt:        e.CreatedAt,
			ProcessingTimeMs: e.ProcessingTimeMs,
		})
	}
	return historyResponse{
		Records: records,
		Count:   len(records),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
}

// createKeyRequest accepts label or the legacy name field
type createKeyRequest struct {
	Label       string `json:"label"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r createKeyRequest) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Name
}

type createKeyResponse struct {
	Secret       string    `json:"secret"`
	CredentialID string    `json:"credential_id"`
	Label        string    `json:"label"`
	CreatedAt    time.Time `json:"created_at"`
	Message      string    `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
