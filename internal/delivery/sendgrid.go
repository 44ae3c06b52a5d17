package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/models"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridConfig configures the transactional email channel.
type SendGridConfig struct {
	APIKey  string
	To      string
	From    string
	Retries int
	Backoff time.Duration
	Timeout time.Duration
}

// SendGridChannel sends the notification through the SendGrid v3 mail API with
// retry and exponential backoff on transient failures.
type SendGridChannel struct {
	cfg      SendGridConfig
	client   *http.Client
	endpoint string
	logger   zerolog.Logger
}

// NewSendGridChannel constructs the channel. The http.Client carries no timeout of
// its own; each attempt runs under a per-attempt context deadline.
func NewSendGridChannel(cfg SendGridConfig, logger zerolog.Logger) *SendGridChannel {
	if cfg.From == "" {
		cfg.From = cfg.To
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}

	return &SendGridChannel{
		cfg:      cfg,
		client:   &http.Client{},
		endpoint: sendGridEndpoint,
		logger:   logger.With().Str("component", "sendgrid_channel").Logger(),
	}
}

// Name implements Notifier.
func (g *SendGridChannel) Name() string { return MethodSendGrid }

// Configured implements Notifier.
func (g *SendGridChannel) Configured() bool {
	return g.cfg.APIKey != "" && g.cfg.To != ""
}

// Send implements Notifier.
func (g *SendGridChannel) Send(ctx context.Context, sub models.Submission) (string, error) {
	return retryTransient(ctx, g.cfg.Retries, g.cfg.Backoff, g.logger, func(ctx context.Context) (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		return g.attempt(attemptCtx, sub)
	})
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func (g *SendGridChannel) attempt(ctx context.Context, sub models.Submission) (string, error) {
	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: g.cfg.To}}}},
		From:             sendGridAddress{Email: g.cfg.From},
		Subject:          notificationSubject(sub),
		Content: []sendGridContent{
			{Type: "text/plain", Value: notificationText(sub)},
			{Type: "text/html", Value: notificationHTML(sub)},
		},
	}

	payload, err := json.Marshal(mail)
	if err != nil {
		return "", fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Network errors and timeouts are worth another attempt.
		return "", markTransient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp.Header.Get("X-Message-Id"), nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err = fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, bytes.TrimSpace(body))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", markTransient(err)
	}

	return "", err
}
