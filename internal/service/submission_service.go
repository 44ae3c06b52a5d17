package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/delivery"
	"github.com/molunlade/contact-api/internal/dto"
	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/observability"
	"github.com/molunlade/contact-api/internal/store"
)

var (
	// ErrUnauthorized indicates a missing or mismatched admin token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAdminTokenUnset indicates listing was attempted with no token configured.
	// Listing fails closed: an unset token never means open access.
	ErrAdminTokenUnset = errors.New("admin token not configured")
	// ErrSpam indicates the honeypot field was filled.
	ErrSpam = errors.New("submission flagged as spam")
	// ErrPersistence indicates the idempotency store could not record the submission.
	ErrPersistence = errors.New("failed to save submission")
)

// ValidationError carries the per-field failures for a 400 response.
type ValidationError struct {
	Fields []dto.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return strings.Join(parts, "; ")
}

// DeliveryChain is the delivery dependency of the service.
type DeliveryChain interface {
	Deliver(ctx context.Context, sub models.Submission) delivery.Outcome
}

// SubmissionService exposes the contact intake workflow.
type SubmissionService interface {
	Create(ctx context.Context, req dto.SubmissionRequest, meta dto.RequestMeta) (dto.SubmissionResult, error)
	List(ctx context.Context, adminToken string) ([]models.Submission, error)
}

type submissionService struct {
	store      store.SubmissionStore
	chain      DeliveryChain
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	adminToken string
	logger     zerolog.Logger
}

// NewSubmissionService constructs the intake service.
func NewSubmissionService(submissions store.SubmissionStore, chain DeliveryChain, validate *validator.Validate, adminToken string, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		store:      submissions,
		chain:      chain,
		validator:  validate,
		sanitizer:  newSanitizer(),
		adminToken: adminToken,
		logger:     logger.With().Str("component", "submission_service").Logger(),
	}
}

// Create orchestrates validation, idempotent persistence, delivery, and the final
// status update. Side effects are strictly ordered: nothing is persisted before
// validation passes, and no delivery runs before the record exists.
func (s *submissionService) Create(ctx context.Context, req dto.SubmissionRequest, meta dto.RequestMeta) (dto.SubmissionResult, error) {
	if req.Honeypot != "" {
		observability.Submissions().WithLabelValues("spam").Inc()
		return dto.SubmissionResult{}, ErrSpam
	}

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResult{}, &ValidationError{Fields: toFieldErrors(err)}
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	sub := models.Submission{
		RequestID: requestID,
		Name:      s.sanitizer.Sanitize(strings.TrimSpace(req.Name)),
		Email:     normalizeEmail(req.Email),
		Subject:   s.sanitizer.Sanitize(strings.TrimSpace(req.Subject)),
		Message:   s.sanitizer.Sanitize(strings.TrimSpace(req.Message)),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	record, created, err := s.store.GetOrCreate(ctx, sub)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to record submission")
		observability.Submissions().WithLabelValues("error").Inc()
		return dto.SubmissionResult{}, errors.Join(ErrPersistence, err)
	}

	if !created {
		// Re-submission: return the original record untouched, no new side effects.
		s.logger.Info().Str("request_id", requestID).Msg("duplicate submission, returning existing record")
		observability.Submissions().WithLabelValues("duplicate").Inc()
		return dto.SubmissionResult{
			Submission: record,
			Email:      delivery.EmailSkipped,
			Method:     delivery.MethodCached,
		}, nil
	}

	outcome := s.chain.Deliver(ctx, record)

	patch := store.StatusPatch{SendGridID: outcome.ExternalID}
	if outcome.Status != models.StatusPending {
		patch.Status = outcome.Status
	}
	if outcome.Err != nil {
		patch.Error = outcome.Err.Error()
	}
	if err := s.store.UpdateStatus(ctx, requestID, patch); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to update submission status")
	}

	if outcome.Err != nil {
		observability.Submissions().WithLabelValues("failed").Inc()
		return dto.SubmissionResult{}, outcome.Err
	}

	record.Status = outcome.Status
	record.SendGridID = outcome.ExternalID

	label := "sent"
	if outcome.Method == delivery.MethodTmp {
		label = "fallback"
	}
	observability.Submissions().WithLabelValues(label).Inc()

	s.logger.Info().
		Str("request_id", requestID).
		Str("method", outcome.Method).
		Str("status", record.Status).
		Msg("submission processed")

	return dto.SubmissionResult{
		Submission: record,
		Email:      outcome.Email,
		Method:     outcome.Method,
		Note:       outcome.Note,
	}, nil
}

// List returns all stored submissions after an exact admin-token match.
func (s *submissionService) List(ctx context.Context, adminToken string) ([]models.Submission, error) {
	if s.adminToken == "" {
		s.logger.Error().Msg("ADMIN_TOKEN is not configured; refusing to list submissions")
		return nil, ErrAdminTokenUnset
	}

	if adminToken == "" || subtle.ConstantTimeCompare([]byte(adminToken), []byte(s.adminToken)) != 1 {
		return nil, ErrUnauthorized
	}

	return s.store.List(ctx)
}
