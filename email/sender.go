package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"Onboarding/Models"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Sender delivers e-mails through the configured SMTP server.
type Sender struct {
	Config Models.EmailConfig
}

func NewSender(config Models.EmailConfig) *Sender {
	return &Sender{Config: config}
}

// Send delivers message, honouring ctx while connecting.
func (s *Sender) Send(ctx context.Context, message Models.EmailMessage) error {
	config := s.Config
	if !config.Enabled() {
		return ErrNotConfigured
	}
	if len(message.To) == 0 {
		return errors.New("email has no recipients")
	}

	body := buildMessage(config, message)
	recipients := make([]string, 0, len(message.To)+len(message.CC)+len(message.BCC))
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)

	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	if config.TLSEnabled {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName:         config.SMTPServer,
				InsecureSkipVerify: config.SkipTLSCheck,
			},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", serverAddr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", serverAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if !config.TLSEnabled {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: config.SMTPServer, InsecureSkipVerify: config.SkipTLSCheck}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if config.Username != "" {
		auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}
	return client.Quit()
}

// buildMessage renders the headers and body. Header order is fixed so the
// output is stable.
func buildMessage(config Models.EmailConfig, message Models.EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", config.FromName, config.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(message.To, ", "))
	if len(message.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(message.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", message.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if message.IsHTML {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(message.Body)
	return b.String()
}
