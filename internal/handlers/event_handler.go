package handlers

import (
	"errors"
	"time"

	"github.com/forumkit/trustcore/internal/dto"
	"github.com/forumkit/trustcore/internal/services"
	"github.com/gofiber/fiber/v2"
)

type EventHandler struct {
	orchestrator *services.Orchestrator
}

func NewEventHandler(orchestrator *services.Orchestrator) *EventHandler {
	return &EventHandler{orchestrator: orchestrator}
}

// Ingest accepts one content-lifecycle event and dispatches it through
// every processing stage before answering. Upstream delivery is
// at-least-once; a redelivered event id is acknowledged without rework.
func (h *EventHandler) Ingest(c *fiber.Ctx) error {
	var req dto.IngestEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	evt := services.Event{
		ID:        req.EventID,
		Kind:      req.Kind,
		UserID:    req.UserID,
		AuthorID:  req.AuthorID,
		ContentID: req.ContentID,
		Body:      req.Body,
		Topic:     req.Topic,
		Minutes:   req.Minutes,
		PostsRead: req.PostsRead,
		Reason:    req.Reason,
		CreatedAt: createdAt,
	}

	if err := h.orchestrator.Dispatch(evt); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Event processing failed",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.IngestEventResponse{
		EventID:  req.EventID,
		Accepted: true,
	})
}

// ListParked exposes parked events to the admin surface.
func (h *EventHandler) ListParked(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit > 100 {
		limit = 100
	}

	records, total, err := h.orchestrator.Parked(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list parked events",
		})
	}

	return c.JSON(fiber.Map{
		"events": records,
		"total":  total,
	})
}

// Replay re-dispatches a parked event from its stage cursor.
func (h *EventHandler) Replay(c *fiber.Ctx) error {
	eventID := c.Params("id")
	if eventID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Event id is required",
		})
	}

	if err := h.orchestrator.ReplayParked(eventID); err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Event not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Replay failed",
		})
	}

	return c.JSON(fiber.Map{"event_id": eventID, "replayed": true})
}
