// Package mail sends SendSmtp notifications. Failures here are reported to
// the caller but must never block a repository operation; the evaluator
// logs them and moves on.
package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/svnhook/svnhook/internal/logger"
)

// Message is a fully-expanded notification mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Render assembles the wire form: From/To/Subject headers, a blank line,
// then the body with CRLF line endings.
func (m *Message) Render() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	for _, to := range m.To {
		fmt.Fprintf(&b, "To: %s\r\n", to)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("\r\n")
	for _, line := range strings.Split(m.Body, "\n") {
		b.WriteString(strings.TrimRight(line, "\r"))
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

// Sender delivers messages over SMTP with a bounded connect timeout.
type Sender struct {
	// Addr is "host" or "host:port"; port defaults to 25.
	Addr    string
	Timeout time.Duration
}

// Send connects to the server and transmits the message. Refused
// recipients are logged as warnings; the send fails only when no recipient
// is accepted or the transfer itself breaks.
func (s *Sender) Send(m *Message) error {
	addr := s.Addr
	if addr == "" {
		return fmt.Errorf("no SMTP server configured")
	}
	if !strings.Contains(addr, ":") {
		addr += ":25"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid SMTP server %q: %w", s.Addr, err)
	}

	conn, err := net.DialTimeout("tcp", addr, s.Timeout)
	if err != nil {
		return fmt.Errorf("SMTP connect failed: %w", err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP handshake failed: %w", err)
	}
	defer client.Close()

	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("SMTP MAIL failed: %w", err)
	}

	accepted := 0
	for _, to := range m.To {
		if err := client.Rcpt(to); err != nil {
			logger.Warn("recipient refused", "recipient", to, "error", err)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients refused")
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA failed: %w", err)
	}
	if _, err := w.Write(m.Render()); err != nil {
		w.Close()
		return fmt.Errorf("SMTP write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP transfer failed: %w", err)
	}

	return client.Quit()
}
