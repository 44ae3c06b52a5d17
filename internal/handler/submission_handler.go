package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/delivery"
	"github.com/molunlade/contact-api/internal/dto"
	"github.com/molunlade/contact-api/internal/middleware"
	"github.com/molunlade/contact-api/internal/service"
	"github.com/molunlade/contact-api/internal/utils"
)

// AdminTokenHeader carries the shared admin secret for the list endpoint.
const AdminTokenHeader = "x-admin-token"

// SubmissionHandler exposes the contact form endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/users", h.create)
	router.Get("/users", h.list)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var req dto.SubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Malformed request body")
	}

	meta := dto.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}

	result, err := h.service.Create(c.Context(), req, meta)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			return utils.SendValidationErrors(c, verr.Fields)
		case errors.Is(err, service.ErrSpam):
			return utils.SendError(c, fiber.StatusBadRequest, "Invalid submission")
		case errors.Is(err, service.ErrPersistence):
			h.logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("submission persistence failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to save submission")
		case errors.Is(err, delivery.ErrExhausted):
			h.logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("all delivery channels exhausted")
			return utils.SendError(c, fiber.StatusBadGateway, "Unable to deliver submission; no storage or notification channel succeeded")
		default:
			h.logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("submission failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "Server error")
		}
	}

	fields := fiber.Map{
		"submission": result.Submission,
		"email":      result.Email,
		"method":     result.Method,
	}
	if result.Note != "" {
		fields["note"] = result.Note
	}

	return utils.SendOK(c, fields)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	submissions, err := h.service.List(c.Context(), c.Get(AdminTokenHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminTokenUnset):
			return utils.SendError(c, fiber.StatusInternalServerError, "ADMIN_TOKEN not configured")
		case errors.Is(err, service.ErrUnauthorized):
			return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
		default:
			h.logger.Error().Err(err).Msg("failed to list submissions")
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to read submissions")
		}
	}

	return utils.SendOK(c, fiber.Map{"submissions": submissions})
}
