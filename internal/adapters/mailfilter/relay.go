package mailfilter

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Relay delivers a processed message downstream
type Relay interface {
	Send(sender string, recipients []string, data []byte) error
}

// SMTPRelay hands messages back to the MTA over SMTP
type SMTPRelay struct {
	address string
	logger  *zap.Logger
}

// NewSMTPRelay creates a relay to host:port
func NewSMTPRelay(host string, port int, logger *zap.Logger) *SMTPRelay {
	return &SMTPRelay{
		address: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		logger:  logger,
	}
}

// Send delivers the message, succeeding when at least one recipient is accepted
func (r *SMTPRelay) Send(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", r.address, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			r.logger.Warn("RCPT TO failed for recipient", zap.String("recipient", rcpt), zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		r.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}
