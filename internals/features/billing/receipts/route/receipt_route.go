package route

import (
	"github.com/gofiber/fiber/v2"

	"tuitionhub_backend/internals/constants"
	receiptController "tuitionhub_backend/internals/features/billing/receipts/controller"
	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
)

/*
Mounted under /billing:
- GET  /receipts/:payment_id/download    (TEACHER, STUDENT own payment)
- POST /receipts/:payment_id/regenerate  (TEACHER)
*/
func ReceiptRoutes(billing fiber.Router, ctl *receiptController.ReceiptController, auth fiber.Handler) {
	rc := billing.Group("/receipts", auth)
	rc.Get("/:payment_id/download", ctl.Download)
	rc.Post("/:payment_id/regenerate",
		authMiddleware.OnlyRoles(constants.RoleErrorTeacher("regenerate receipts"), constants.TeacherOnly...),
		ctl.Regenerate,
	)
}
