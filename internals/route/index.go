package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
	routeDetails "tuitionhub_backend/internals/route/details"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, deps routeDetails.BillingDeps, jwtSecret string) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, deps)

	auth := authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
		Secret:              jwtSecret,
		AllowCookieFallback: true,
	})

	log.Println("[INFO] Mounting Billing routes...")
	routeDetails.BillingRoutes(app, deps, auth)
}
