// Package notify delivers operational mail: funding decisions to users
// and review alerts to the back office. Delivery is best effort; callers
// never fail their own work over a mail error.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Message is one outgoing mail.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Config holds the SMTP endpoint. The dialer speaks implicit TLS, the
// usual setup for port 465 providers.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends mail over SMTP with implicit TLS.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

func NewMailer(cfg Config, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers the message. The context bounds the dial; SMTP itself has
// no context support in the standard library, so an established session
// runs to completion.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	const op = "Mailer.Send"
	if len(msg.To) == 0 {
		return fmt.Errorf("[%s] no recipients", op)
	}

	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("[%s] failed to dial smtp server, err=%w", op, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("[%s] failed to open smtp session, err=%w", op, err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("[%s] smtp auth failed, err=%w", op, err)
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("[%s] sender rejected, err=%w", op, err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("[%s] recipient %s rejected, err=%w", op, rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("[%s] failed to open data stream, err=%w", op, err)
	}
	if _, err := writer.Write([]byte(render(m.cfg.From, msg))); err != nil {
		return fmt.Errorf("[%s] failed to write message, err=%w", op, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("[%s] failed to finish message, err=%w", op, err)
	}
	return client.Quit()
}

func render(from string, msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return b.String()
}
