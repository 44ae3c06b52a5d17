// Package delivery implements the layered fallback chain that relays a contact
// submission: durable database insert, SendGrid notification, direct SMTP, and an
// ephemeral temp-file fallback. Durability and notification are independent: a
// successful database insert persists the record even when every notification
// channel fails.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/observability"
)

// Notification channel methods reported in outcomes.
const (
	MethodDatabase = "database"
	MethodSendGrid = "sendgrid"
	MethodSMTP     = "smtp"
	MethodTmp      = "tmp"
	MethodCached   = "cached"
)

// Email summarises the notification side of an outcome.
const (
	EmailSent    = "sent"
	EmailSkipped = "skipped"
	EmailFailed  = "failed"
)

// ErrExhausted is returned when every configured channel failed.
var ErrExhausted = errors.New("all delivery channels exhausted")

// FallbackNote is surfaced to the caller when only the ephemeral fallback caught
// the submission. It must never read like a durable success.
const FallbackNote = "stored to ephemeral filesystem; configure a database or email channel for persistence"

// Storage is the durable half of the chain (channel 1).
type Storage interface {
	// Persist inserts the submission or fetches the record already stored under
	// its request id.
	Persist(ctx context.Context, sub models.Submission) (models.Submission, error)
}

// Notifier is a notification channel (channels 2-4). Send returns the external
// delivery id when the channel provides one.
type Notifier interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, sub models.Submission) (string, error)
}

// Outcome is the result of one pass through the chain.
type Outcome struct {
	Status     string // models.StatusSent | StatusPending | StatusFailed
	Method     string // channel that carried the submission
	Email      string // sent | skipped | failed
	ExternalID string
	Note       string
	Err        error
}

// Chain evaluates the channels in fixed priority order with short-circuit on the
// first success per concern. It is a sequential state machine: each channel is
// either skipped (unconfigured), tried and succeeded, or tried and failed, in
// which case the next channel is attempted until the list is exhausted.
type Chain struct {
	storage   Storage
	notifiers []Notifier
	fallback  Notifier
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewChain assembles the delivery chain. storage and fallback may be nil when the
// deployment does not configure them.
func NewChain(storage Storage, notifiers []Notifier, fallback Notifier, timeout time.Duration, logger zerolog.Logger) *Chain {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &Chain{
		storage:   storage,
		notifiers: notifiers,
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger.With().Str("component", "delivery_chain").Logger(),
	}
}

// Deliver runs the chain for a submission. Records that already completed a
// notification short-circuit without invoking any channel.
func (c *Chain) Deliver(ctx context.Context, sub models.Submission) Outcome {
	if sub.Delivered() {
		c.logger.Info().Str("request_id", sub.RequestID).Msg("submission already delivered, skipping channels")
		return Outcome{
			Status:     models.StatusSent,
			Method:     MethodCached,
			Email:      EmailSkipped,
			ExternalID: sub.SendGridID,
		}
	}

	var (
		errs     []error
		durable  bool
		notified bool
		outcome  Outcome
	)

	if c.storage != nil {
		persistCtx, cancel := context.WithTimeout(ctx, c.timeout)
		_, err := c.storage.Persist(persistCtx, sub)
		cancel()

		if err != nil {
			observability.DeliveryAttempts().WithLabelValues(MethodDatabase, "error").Inc()
			c.logger.Error().Err(err).Str("request_id", sub.RequestID).Msg("database persistence failed")
			errs = append(errs, fmt.Errorf("database: %w", err))
		} else {
			observability.DeliveryAttempts().WithLabelValues(MethodDatabase, "ok").Inc()
			durable = true
			outcome.Method = MethodDatabase
		}
	}

	emailAttempted := false
	for _, notifier := range c.notifiers {
		if !notifier.Configured() {
			continue
		}
		emailAttempted = true

		externalID, err := notifier.Send(ctx, sub)
		if err != nil {
			observability.DeliveryAttempts().WithLabelValues(notifier.Name(), "error").Inc()
			c.logger.Warn().Err(err).
				Str("request_id", sub.RequestID).
				Str("channel", notifier.Name()).
				Msg("notification channel failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
			continue
		}

		observability.DeliveryAttempts().WithLabelValues(notifier.Name(), "ok").Inc()
		notified = true
		outcome.Method = notifier.Name()
		outcome.ExternalID = externalID
		break
	}

	switch {
	case notified:
		outcome.Email = EmailSent
	case emailAttempted:
		outcome.Email = EmailFailed
	default:
		outcome.Email = EmailSkipped
	}

	if durable || notified {
		outcome.Status = models.StatusSent
		return outcome
	}

	if c.fallback != nil && c.fallback.Configured() {
		if _, err := c.fallback.Send(ctx, sub); err != nil {
			observability.DeliveryAttempts().WithLabelValues(MethodTmp, "error").Inc()
			c.logger.Error().Err(err).Str("request_id", sub.RequestID).Msg("ephemeral fallback failed")
			errs = append(errs, fmt.Errorf("tmp: %w", err))
		} else {
			observability.DeliveryAttempts().WithLabelValues(MethodTmp, "ok").Inc()
			c.logger.Warn().Str("request_id", sub.RequestID).Msg("submission caught by ephemeral fallback only")
			outcome.Status = models.StatusPending
			outcome.Method = MethodTmp
			outcome.Note = FallbackNote
			return outcome
		}
	}

	outcome.Status = models.StatusFailed
	if joined := errors.Join(errs...); joined != nil {
		outcome.Err = fmt.Errorf("%w: %w", ErrExhausted, joined)
	} else {
		outcome.Err = fmt.Errorf("%w: no delivery channel configured", ErrExhausted)
	}
	return outcome
}
