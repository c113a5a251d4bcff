// Package mailfilter is an SMTP content filter that scans relayed mail and
// stamps the verdict into the message headers.
package mailfilter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/utils"
	"github.com/mikey/email-guardian/internal/whitelist"
	"go.uber.org/zap"
)

// errorHeader marks mail that was relayed without a verdict
const errorHeader = "X-Guardian-Error"

// Options configures the content filter
type Options struct {
	ListenAddress        string
	RejectHighRisk       bool
	ClassificationHeader string
	ConfidenceHeader     string
	RiskHeader           string
	ScanIDHeader         string
	ScanTimeout          time.Duration
}

// Filter receives mail over SMTP, classifies it and relays it downstream
type Filter struct {
	scans         *core.ScanService
	whitelist     *whitelist.Checker
	relay         Relay
	textProcessor *utils.TextProcessor
	opts          Options
	logger        *zap.Logger
	server        *smtp.Server
}

// NewFilter creates a content filter; relay may be nil when nothing is forwarded
func NewFilter(
	scans *core.ScanService,
	checker *whitelist.Checker,
	relay Relay,
	textProcessor *utils.TextProcessor,
	opts Options,
	logger *zap.Logger,
) *Filter {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 10 * time.Second
	}
	return &Filter{
		scans:         scans,
		whitelist:     checker,
		relay:         relay,
		textProcessor: textProcessor,
		opts:          opts,
		logger:        logger,
	}
}

// Name identifies the frontend in logs
func (f *Filter) Name() string {
	return "smtp"
}

// Start binds the SMTP listener and serves it in the background
func (f *Filter) Start() error {
	ln, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}

	f.server = smtp.NewServer(&backend{filter: f})
	f.server.Addr = ln.Addr().String()
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("SMTP content filter starting",
		zap.String("address", f.server.Addr),
		zap.Bool("reject_high_risk", f.opts.RejectHighRisk),
		zap.Int("whitelisted_domains", f.whitelist.Len()))

	go func() {
		if err := f.server.Serve(ln); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address once started
func (f *Filter) Addr() string {
	if f.server == nil {
		return ""
	}
	return f.server.Addr
}

// Stop closes the listener
func (f *Filter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// Process scans one raw message and returns it with verdict headers added.
// A high-risk message returns a 550 *smtp.SMTPError when rejection is enabled.
func (f *Filter) Process(ctx context.Context, sender, client string, raw []byte) ([]byte, error) {
	domain := whitelist.SenderDomain(sender)

	if f.whitelist.IsWhitelisted(sender) {
		f.logger.Info("Relaying whitelisted sender unscanned", zap.String("sender_domain", domain))
		return raw, nil
	}

	text, err := ExtractText(bytes.NewReader(raw))
	if err != nil {
		f.logger.Warn("Malformed message", zap.String("sender_domain", domain), zap.Error(err))
		return nil, &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}
	text = f.textProcessor.TruncateChars(text, core.MaxTextLength)

	ctx, cancel := context.WithTimeout(ctx, f.opts.ScanTimeout)
	defer cancel()

	res, err := f.scans.Scan(ctx, core.ScanRequest{
		Text:          text,
		RequesterID:   "smtp:" + domain,
		SourceAddress: client,
	})
	if err != nil && !core.IsPersistence(err) {
		f.logger.Warn("Message not scanned", zap.String("sender_domain", domain), zap.Error(err))
		return f.stamp(raw, [][2]string{
			{errorHeader, "not scanned"},
		})
	}

	v := res.Verdict
	if f.opts.RejectHighRisk && v.Classification == core.ClassificationSuspicious && v.RiskTier == core.RiskHigh {
		f.logger.Info("Rejecting high-risk message",
			zap.String("scan_id", res.ScanID),
			zap.String("sender_domain", domain),
			zap.Float64("confidence", v.Confidence))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as suspicious (scan %s)", res.ScanID),
		}
	}

	f.logger.Info("Scanned message",
		zap.String("scan_id", res.ScanID),
		zap.String("sender_domain", domain),
		zap.String("classification", string(v.Classification)),
		zap.String("risk_tier", string(v.RiskTier)))

	return f.stamp(raw, [][2]string{
		{f.opts.ClassificationHeader, string(v.Classification)},
		{f.opts.ConfidenceHeader, strconv.FormatFloat(v.Confidence, 'f', 4, 64)},
		{f.opts.RiskHeader, string(v.RiskTier)},
		{f.opts.ScanIDHeader, res.ScanID},
	})
}

// stamp adds verdict headers after removing every header name the filter
// owns, so a sender cannot pre-set any of them
func (f *Filter) stamp(raw []byte, headers [][2]string) ([]byte, error) {
	owned := []string{
		errorHeader,
		f.opts.ClassificationHeader,
		f.opts.ConfidenceHeader,
		f.opts.RiskHeader,
		f.opts.ScanIDHeader,
	}
	out, err := stampHeaders(raw, owned, headers)
	if err != nil {
		f.logger.Warn("Failed to stamp message headers", zap.Error(err))
		return nil, &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}
	return out, nil
}

type backend struct {
	filter *Filter
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	client := ""
	if c != nil && c.Conn() != nil {
		if host, _, err := net.SplitHostPort(c.Conn().RemoteAddr().String()); err == nil {
			client = host
		}
	}
	return &session{filter: b.filter, client: client}, nil
}

type session struct {
	filter     *Filter
	client     string
	sender     string
	recipients []string
}

func (s *session) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.Process(context.Background(), s.sender, s.client, raw)
	if err != nil {
		return err
	}

	if s.filter.relay == nil {
		s.filter.logger.Warn("Relay disabled, message accepted but not forwarded")
		return nil
	}
	if err := s.filter.relay.Send(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to relay message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 4, 0},
			Message:      "Downstream relay unavailable, try again later",
		}
	}
	return nil
}

func (s *session) Logout() error {
	return nil
}
