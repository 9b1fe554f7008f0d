package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sharptier/cms/internal/service"
)

// ServiceName identifies this deployment in health responses
const ServiceName = "template-sharptier-cms"

// HealthHandler reports liveness. Responses are never cached and each
// carries a later timestamp than the last.
func HealthHandler(stamper *service.Stamper) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   ServiceName,
			"timestamp": stamper.Next().Format(service.StampLayout),
		})
	}
}
