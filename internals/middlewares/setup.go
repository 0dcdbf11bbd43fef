package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"tuitionhub_backend/internals/middlewares/logger"
)

// SetupMiddlewares installs the app-wide chain. Route groups add auth and
// tighter limiters on top.
func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(logger.LoggerMiddleware())
	app.Use(CorsMiddleware())
	app.Use(GlobalRateLimiter())
}
