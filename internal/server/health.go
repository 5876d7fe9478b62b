package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
)

// healthHandler reports ok while the database answers a ping
func healthHandler(c *fiber.Ctx) error {
	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}
