package middleware

import (
	"github.com/forumkit/trustcore/internal/config"
	"github.com/forumkit/trustcore/internal/dto"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// ServiceKeyRequired authenticates the machine ingress. The content store
// presents a shared key; only its bcrypt hash is held in config.
func ServiceKeyRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Service-Key")
		if cfg.ServiceKeyHash == "" || key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.ServiceKeyHash), []byte(key)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return c.Next()
	}
}
