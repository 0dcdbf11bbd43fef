package route

import (
	"github.com/gofiber/fiber/v2"

	"tuitionhub_backend/internals/constants"
	invoiceController "tuitionhub_backend/internals/features/billing/invoices/controller"
	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
)

/*
Mounted under /billing:
- GET  /invoices             (TEACHER all, STUDENT own)
- POST /invoices             (TEACHER)
- POST /invoices/:id/cancel  (TEACHER)
- GET  /fee-plans            (TEACHER)
- POST /fee-plans            (TEACHER)
- POST /fee-plans/generate   (TEACHER)
*/
func InvoiceRoutes(billing fiber.Router, ctl *invoiceController.InvoiceController, auth fiber.Handler) {
	teacherOnly := authMiddleware.OnlyRoles(constants.RoleErrorTeacher("manage invoices"), constants.TeacherOnly...)

	inv := billing.Group("/invoices", auth)
	inv.Get("/", ctl.List)
	inv.Post("/", teacherOnly, ctl.Create)
	inv.Post("/:id/cancel", teacherOnly, ctl.Cancel)

	fp := billing.Group("/fee-plans", auth, teacherOnly)
	fp.Get("/", ctl.ListFeePlans)
	fp.Post("/", ctl.CreateFeePlan)
	fp.Post("/generate", ctl.GenerateDue)
}
