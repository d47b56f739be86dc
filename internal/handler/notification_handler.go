package handler

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/internal/utils"
)

// NotificationHandler serves the inbox: listing, the SSE stream and the
// change-request decisions taken from a notification.
type NotificationHandler struct {
	notifications service.NotificationService
	requests      service.ChangeRequestService
	logger        zerolog.Logger
	keepAlive     time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(notifications service.NotificationService, requests service.ChangeRequestService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		requests:      requests,
		logger:        logger.With().Str("component", "notification_handler").Logger(),
		keepAlive:     keepAlive,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stream", h.stream)
	router.Get("/:id", h.open)
	router.Post("/:id/apply", h.apply)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
	router.Post("/:id/archive", h.archive)
	router.Delete("/:id", h.delete)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var query dto.NotificationListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	notifications, err := h.notifications.List(requestContext(c), actor, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

// stream serves GET /notifications/stream. Items missed since Last-Event-ID
// are replayed before live delivery starts.
func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	// Subscribe before replaying so nothing created in between is lost.
	live, cleanup := h.notifications.Subscribe(userID)
	missed, err := h.notifications.Replay(requestContext(c), userID, lastEventID(c))
	if err != nil {
		cleanup()
		return respondError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	interval := h.keepAlive
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer cleanup()

		out := sseWriter{w: w}
		if err := out.retry(sseRetry); err != nil {
			return
		}

		var lastSent uint
		for _, item := range missed {
			if err := out.notification(item); err != nil {
				return
			}
			lastSent = item.ID
		}

		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()

		for {
			select {
			case item, ok := <-live:
				if !ok {
					return
				}
				if item.ID <= lastSent {
					continue
				}
				if err := out.notification(item); err != nil {
					h.logger.Debug().Err(err).Str("recipient_id", userID).Msg("notification stream closed")
					return
				}
			case now := <-ticker.C:
				if err := out.keepAlive(now); err != nil {
					h.logger.Debug().Err(err).Str("recipient_id", userID).Msg("notification stream closed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

// open returns the notification with its assignment request and proposal,
// marking it read on first view.
func (h *NotificationHandler) open(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	detail, err := h.requests.Open(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notification opened", detail)
}

func (h *NotificationHandler) apply(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	result, err := h.requests.ApplyProposal(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "proposal applied", result)
}

func (h *NotificationHandler) approve(c *fiber.Ctx) error {
	return h.resolve(c, h.requests.Approve, "request approved")
}

func (h *NotificationHandler) reject(c *fiber.Ctx) error {
	return h.resolve(c, h.requests.Reject, "request rejected")
}

type resolveFunc func(ctx context.Context, actor service.Actor, notificationID uint, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error)

func (h *NotificationHandler) resolve(c *fiber.Ctx, fn resolveFunc, message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	var payload dto.ResolutionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	assignment, err := fn(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, assignment)
}

func (h *NotificationHandler) archive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	notification, err := h.requests.Archive(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notification archived", notification)
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	if err := h.requests.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
