package handlers

import (
	"github.com/forumkit/trustcore/internal/dto"
	"github.com/forumkit/trustcore/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	trust        *services.TrustService
	gamification *services.GamificationService
}

func NewUserHandler(trust *services.TrustService, gamification *services.GamificationService) *UserHandler {
	return &UserHandler{trust: trust, gamification: gamification}
}

func (h *UserHandler) Standing(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	level, ledger, err := h.trust.Standing(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read standing",
		})
	}

	return c.JSON(dto.StandingResponse{
		UserID:           userID,
		Level:            level.Level,
		ComputedAt:       level.ComputedAt,
		PostsRead:        ledger.PostsRead,
		TimeSpentMinutes: ledger.TimeSpentMinutes,
		DaysVisited:      ledger.DaysVisited,
		LikesReceived:    ledger.LikesReceived,
		LikesGiven:       ledger.LikesGiven,
		TopicsCreated:    ledger.TopicsCreated,
		PostsCreated:     ledger.PostsCreated,
	})
}

func (h *UserHandler) Gamification(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	points, userBadges, err := h.gamification.Profile(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read gamification profile",
		})
	}

	badges := make([]dto.BadgeResponse, 0, len(userBadges))
	for _, ub := range userBadges {
		badges = append(badges, dto.BadgeResponse{
			ID:          ub.BadgeID,
			Name:        ub.Badge.Name,
			Description: ub.Badge.Description,
			AwardedAt:   ub.AwardedAt,
		})
	}

	return c.JSON(dto.GamificationResponse{
		UserID: userID,
		Points: points,
		Badges: badges,
	})
}
