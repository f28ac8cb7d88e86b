package middleware

import (
	"strings"

	"github.com/forumkit/trustcore/internal/config"
	"github.com/forumkit/trustcore/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// ModeratorRequired gates the review endpoints. A caller passes with:
// 1. the configured admin token header, or
// 2. a JWT whose sub is in the configured admin list, or
// 3. a JWT carrying a moderator/admin role claim issued by the
//    membership system.
func ModeratorRequired(cfg *config.Config) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}

		callerID, err := CallerID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(adminUserIDs, callerID.String()) {
			return c.Next()
		}

		switch CallerRole(c) {
		case "moderator", "admin":
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Moderator access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
