package handlers

import (
	"errors"

	"github.com/forumkit/trustcore/internal/dto"
	"github.com/forumkit/trustcore/internal/middleware"
	"github.com/forumkit/trustcore/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReviewHandler struct {
	review *services.ReviewService
}

func NewReviewHandler(review *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

func (h *ReviewHandler) Queue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit > 100 {
		limit = 100
	}

	items, total, err := h.review.PendingQueue(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch review queue",
		})
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *ReviewHandler) Resolve(c *fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid item ID",
		})
	}

	moderatorID, err := middleware.CallerID(c)
	if err != nil {
		moderatorID = uuid.Nil // admin-token callers have no JWT identity
	}

	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	item, err := h.review.Resolve(itemID, req.Decision, moderatorID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrItemNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to resolve item",
		})
	}

	return c.JSON(item)
}

func (h *ReviewHandler) ResolveBatch(c *fiber.Ctx) error {
	moderatorID, err := middleware.CallerID(c)
	if err != nil {
		moderatorID = uuid.Nil
	}

	var req dto.ResolveBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if len(req.ItemIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "item_ids is required",
		})
	}

	outcomes := h.review.ResolveBatch(req.ItemIDs, req.Decision, moderatorID, req.Reason)
	return c.JSON(fiber.Map{"outcomes": outcomes})
}

func (h *ReviewHandler) Stats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 1
	}

	stats, err := h.review.Stats(days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to compute stats",
		})
	}
	return c.JSON(stats)
}
