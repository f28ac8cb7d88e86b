package handlers

import (
	"time"

	"github.com/forumkit/trustcore/internal/database"
	"github.com/forumkit/trustcore/internal/dto"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	rules *rules.Rules
}

func NewHealthHandler(r *rules.Rules) *HealthHandler {
	return &HealthHandler{rules: r}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DB:         dbStatus,
		BadgeCount: len(h.rules.Badges),
		TierCount:  len(h.rules.Tiers),
	})
}
