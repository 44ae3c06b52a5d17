package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/models"
)

// SMTPConfig configures the direct-SMTP notification channel.
type SMTPConfig struct {
	Host    string
	Port    int
	Secure  bool // implicit TLS on connect (port 465 style)
	User    string
	Pass    string
	From    string
	To      string
	Timeout time.Duration
}

// SMTPChannel delivers the notification straight to an SMTP server. It is only
// reached when SendGrid is unconfigured or exhausted.
type SMTPChannel struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

// NewSMTPChannel constructs the channel.
func NewSMTPChannel(cfg SMTPConfig, logger zerolog.Logger) *SMTPChannel {
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.To == "" {
		cfg.To = cfg.From
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}

	return &SMTPChannel{
		cfg:    cfg,
		logger: logger.With().Str("component", "smtp_channel").Logger(),
	}
}

// Name implements Notifier.
func (s *SMTPChannel) Name() string { return MethodSMTP }

// Configured implements Notifier.
func (s *SMTPChannel) Configured() bool {
	return s.cfg.Host != "" && s.cfg.User != "" && s.cfg.Pass != ""
}

// Send implements Notifier. net/smtp has no context support, so the connection
// carries an absolute deadline covering the whole exchange.
func (s *SMTPChannel) Send(ctx context.Context, sub models.Submission) (string, error) {
	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return "", markTransient(fmt.Errorf("smtp dial failed: %w", err))
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return "", err
	}

	if s.cfg.Secure {
		conn = tls.Client(conn, &tls.Config{ServerName: s.cfg.Host})
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return "", markTransient(fmt.Errorf("smtp handshake failed: %w", err))
	}
	defer client.Close()

	if !s.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return "", fmt.Errorf("smtp starttls failed: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return "", fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return "", fmt.Errorf("smtp mail from rejected: %w", err)
	}
	if err := client.Rcpt(s.cfg.To); err != nil {
		return "", fmt.Errorf("smtp recipient rejected: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return "", markTransient(err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		s.cfg.From, s.cfg.To, notificationSubject(sub), notificationText(sub))
	if _, err := writer.Write([]byte(msg)); err != nil {
		writer.Close()
		return "", markTransient(err)
	}
	if err := writer.Close(); err != nil {
		return "", markTransient(err)
	}

	if err := client.Quit(); err != nil {
		s.logger.Debug().Err(err).Msg("smtp quit returned error after accepted message")
	}

	s.logger.Info().Str("host", s.cfg.Host).Str("request_id", sub.RequestID).Msg("notification sent via smtp")

	return "", nil
}
