package route

import (
	"github.com/gofiber/fiber/v2"

	"tuitionhub_backend/internals/constants"
	paymentController "tuitionhub_backend/internals/features/billing/payments/controller"
	"tuitionhub_backend/internals/middlewares"
	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
)

/*
Mounted under /billing:
- POST /payments/online/create-order   (TEACHER, STUDENT own invoice)
- POST /payments/online/verify         (TEACHER, STUDENT)
- POST /payments/manual                (TEACHER)
- GET  /payments                       (TEACHER all, STUDENT own)
- POST /webhooks/:provider             (gateway, signature checked, no JWT)
*/
func PaymentRoutes(billing fiber.Router, ctl *paymentController.PaymentController, auth fiber.Handler) {
	billing.Post("/webhooks/:provider", middlewares.WebhookRateLimiter(), ctl.Webhook)

	pay := billing.Group("/payments", auth)
	pay.Get("/", ctl.List)
	pay.Post("/online/create-order", middlewares.PaymentRateLimiter(), ctl.CreateOrder)
	pay.Post("/online/verify", middlewares.PaymentRateLimiter(), ctl.Verify)
	pay.Post("/manual", authMiddleware.OnlyRoles(constants.RoleErrorTeacher("record manual payments"), constants.TeacherOnly...), ctl.CreateManual)
}
