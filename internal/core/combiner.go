package core

import (
	"strings"
)

// Weights and thresholds of the combination policy. They are not tunable per request.
const (
	aiWeight      = 0.7
	patternWeight = 0.3

	suspiciousThreshold = 0.6
	highRiskThreshold   = 0.7
	mediumRiskThreshold = 0.5
)

// VerdictCombiner merges the pattern verdict and the optional AI signal
type VerdictCombiner struct{}

// NewVerdictCombiner creates a new verdict combiner
func NewVerdictCombiner() *VerdictCombiner {
	return &VerdictCombiner{}
}

// Combine produces the final verdict. A nil signal degrades to pattern-only.
func (c *VerdictCombiner) Combine(pattern PatternVerdict, signal *AISignal) Verdict {
	var (
		confidence     float64
		classification Classification
		explanations   []string
	)

	if signal != nil {
		confidence = aiWeight*signal.Score + patternWeight*pattern.Confidence
		if confidence >= suspiciousThreshold {
			classification = ClassificationSuspicious
		} else {
			classification = ClassificationSafe
		}
		if signal.Explanation != "" {
			explanations = append(explanations, signal.Explanation)
		}
	} else {
		confidence = pattern.Confidence
		classification = pattern.Classification
	}

	if pattern.Explanation != "" {
		explanations = append(explanations, pattern.Explanation)
	}

	findings := make([]PatternFinding, len(pattern.Findings))
	copy(findings, pattern.Findings)

	tier := TierFor(confidence)
	// a safe verdict's confidence is confidence in safety, never high risk
	if classification == ClassificationSafe && tier == RiskHigh {
		tier = RiskMedium
	}

	return Verdict{
		Classification: classification,
		Confidence:     confidence,
		RiskTier:       tier,
		Explanation:    strings.Join(explanations, "; "),
		Findings:       findings,
		AIUsed:         signal != nil,
	}
}

// TierFor maps a confidence onto the fixed risk tiers
func TierFor(confidence float64) RiskTier {
	switch {
	case confidence >= highRiskThreshold:
		return RiskHigh
	case confidence >= mediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
