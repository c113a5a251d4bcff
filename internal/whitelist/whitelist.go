package whitelist

import (
	"strings"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// Checker decides whether a sender belongs to a trusted domain whose mail is
// relayed without classification
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			set[d] = struct{}{}
		}
	}

	if len(set) > 0 {
		logger.Info("Initialized sender whitelist", zap.Int("domains", len(set)))
	}

	return &Checker{domains: set, logger: logger}
}

// Len returns the number of trusted domains
func (c *Checker) Len() int {
	return len(c.domains)
}

// IsWhitelisted reports whether the sender's domain, or one of its parent
// domains, is trusted. Display-name forms such as "Ann <ann@x.org>" are accepted.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := SenderDomain(from)
	if domain == "" {
		return false
	}

	for d := domain; d != ""; {
		if _, ok := c.domains[d]; ok {
			c.logger.Debug("Sender domain is whitelisted",
				zap.String("domain", domain),
				zap.String("matched", d))
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}

	return false
}

// SenderDomain extracts the lowercase domain from an address, or "" when the
// address has none
func SenderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}

	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "<> "))
}
