package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	database "tuitionhub_backend/internals/databases"
	routeDetails "tuitionhub_backend/internals/route/details"
)

func BaseRoutes(app *fiber.App, deps routeDetails.BillingDeps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("tuitionhub billing API")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "Connected"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		if err := database.Ping(deps.DB); err != nil {
			dbStatus = "Database connection error"
			serverStatus = "DOWN"
			httpStatus = fiber.StatusServiceUnavailable
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"gateway":        deps.Reconciler.Gateway().Name(),
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    os.Getenv("RAILWAY_ENVIRONMENT"),
		})
	})
}
