package core

import (
	"fmt"
	"regexp"
)

const (
	confidenceNoPatterns   = 0.7
	confidenceFewPatterns  = 0.6
	confidenceManyPatterns = 0.8

	// manyPatternsThreshold is the finding count at which evidence is strong
	manyPatternsThreshold = 3
)

// rule is one row of the compiled rule table
type rule struct {
	id          string
	category    RuleCategory
	description string
	expr        *regexp.Regexp
}

func phishing(id, description, expr string) rule {
	return rule{id: id, category: CategoryPhishing, description: description, expr: regexp.MustCompile(expr)}
}

func spam(id, description, expr string) rule {
	return rule{id: id, category: CategorySpam, description: description, expr: regexp.MustCompile(expr)}
}

// ruleTable is evaluated in order, phishing rules first.
// The shouted-words rule is deliberately case-sensitive.
var ruleTable = []rule{
	phishing("phishing-urgency", "Urgency language",
		`(?i)\b(urgent|immediate|action required|account suspended|verify now)\b`),
	phishing("phishing-deadline", "Deadline pressure",
		`(?i)\b(limited time|expires soon|last chance|final notice)\b`),
	phishing("phishing-account-threat", "Account or billing threat",
		`(?i)\b(account locked|payment overdue|billing issue|refund pending)\b`),
	phishing("phishing-financial-data", "Financial data reference",
		`(?i)\b(credit card|bank account|social security|password expired)\b`),
	phishing("phishing-suspicious-tld", "Link to a suspicious top-level domain",
		`(?i)https?://\S*\.(tk|ml|ga|cf|gq|xyz|top|club|online|site)\b`),
	phishing("phishing-ip-link", "Link to a raw IP address",
		`(?i)https?://\S*\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
	phishing("phishing-lookalike-brand", "Lookalike brand spelling",
		`(?i)\b(amaz0n|paypa1|goog1e|faceb00k|app1e|micr0soft)\b`),
	phishing("phishing-credential-request", "Credential or personal data request",
		`(?i)\b(password|username|ssn|credit card|bank account|mother maiden)\b`),
	phishing("phishing-executable-attachment", "Executable attachment reference",
		`(?i)\b\.(exe|bat|scr|pif|com|vbs|js|jar)\b`),
	phishing("phishing-generic-salutation", "Generic salutation",
		`(?i)\b(dear user|dear customer|dear sir|dear madam)\b`),
	phishing("phishing-suspicious-sender", "Sender on a suspicious top-level domain",
		`(?i)from:\s*\S*@\S*\.(tk|ml|ga|cf|gq|xyz|top|club|online|site)\b`),

	spam("spam-marketing", "Marketing language",
		`(?i)\b(free|discount|offer|limited|sale|deal|save money)\b`),
	spam("spam-call-to-action", "Call-to-action phrase",
		`(?i)\b(click here|buy now|order now|subscribe|unsubscribe)\b`),
	spam("spam-get-rich", "Pharma or get-rich-quick language",
		`(?i)\b(viagra|cialis|weight loss|diet pills|make money fast)\b`),
	spam("spam-lottery", "Lottery or prize language",
		`(?i)\b(winner|prize|lottery|inheritance|million dollars)\b`),
	spam("spam-excess-punctuation", "Excessive exclamation marks",
		`!{2,}`),
	spam("spam-shouting", "Shouted words",
		`\b[A-Z]{4,}\b`),
	spam("spam-bracketed-lure", "Bracketed link lure",
		`(?i)\[click here\]|\[here\]|\[link\]`),
}

// PatternMatcher evaluates the fixed rule table against text.
// It holds no state and is safe for concurrent use.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match evaluates every rule; it never stops at the first hit
func (m *PatternMatcher) Match(text string) PatternVerdict {
	findings := make([]PatternFinding, 0)
	for _, r := range ruleTable {
		if r.expr.MatchString(text) {
			findings = append(findings, PatternFinding{
				RuleID:      r.id,
				Category:    r.category,
				Source:      r.expr.String(),
				Description: r.description,
			})
		}
	}

	verdict := PatternVerdict{
		MatchCount: len(findings),
		Findings:   findings,
	}

	switch {
	case len(findings) >= manyPatternsThreshold:
		verdict.Confidence = confidenceManyPatterns
		verdict.Classification = ClassificationSuspicious
	case len(findings) >= 1:
		verdict.Confidence = confidenceFewPatterns
		verdict.Classification = ClassificationSuspicious
	default:
		verdict.Confidence = confidenceNoPatterns
		verdict.Classification = ClassificationSafe
	}

	if len(findings) == 0 {
		verdict.Explanation = "No suspicious patterns detected"
	} else {
		verdict.Explanation = fmt.Sprintf("Detected %d suspicious patterns", len(findings))
	}

	return verdict
}

// RuleCount returns the number of rules in the table
func (m *PatternMatcher) RuleCount() int {
	return len(ruleTable)
}
