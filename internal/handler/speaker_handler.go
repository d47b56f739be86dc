package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/internal/utils"
)

// SpeakerHandler lets speakers file and track schedule change requests.
type SpeakerHandler struct {
	service service.ChangeRequestService
	logger  zerolog.Logger
}

// NewSpeakerHandler constructs the handler.
func NewSpeakerHandler(service service.ChangeRequestService, logger zerolog.Logger) *SpeakerHandler {
	return &SpeakerHandler{
		service: service,
		logger:  logger.With().Str("component", "speaker_handler").Logger(),
	}
}

// Register wires the speaker request routes.
func (h *SpeakerHandler) Register(router fiber.Router) {
	router.Post("/requests", h.submit)
	router.Get("/requests", h.list)
}

func (h *SpeakerHandler) submit(c *fiber.Ctx) error {
	var payload dto.SpeakerRequestCreate
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Submit(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "request submitted", result)
}

func (h *SpeakerHandler) list(c *fiber.Ctx) error {
	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	items, meta, err := h.service.ListSubmitted(requestContext(c), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, items, "requests retrieved", meta)
}
