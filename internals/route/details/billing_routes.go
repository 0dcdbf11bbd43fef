package details

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	invoiceController "tuitionhub_backend/internals/features/billing/invoices/controller"
	invoiceRoutes "tuitionhub_backend/internals/features/billing/invoices/route"
	invoiceService "tuitionhub_backend/internals/features/billing/invoices/service"
	paymentController "tuitionhub_backend/internals/features/billing/payments/controller"
	paymentRoutes "tuitionhub_backend/internals/features/billing/payments/route"
	paymentService "tuitionhub_backend/internals/features/billing/payments/service"
	receiptController "tuitionhub_backend/internals/features/billing/receipts/controller"
	receiptRoutes "tuitionhub_backend/internals/features/billing/receipts/route"
	receiptService "tuitionhub_backend/internals/features/billing/receipts/service"
)

// BillingDeps carries the long-lived services the billing controllers share.
type BillingDeps struct {
	DB         *gorm.DB
	Reconciler *paymentService.Reconciler
	Receipts   *receiptService.Generator
	FeePlans   *invoiceService.FeePlanService
	Audit      receiptController.AuditRecorder
}

// BillingRoutes mounts everything under /billing. auth guards the user
// facing groups; gateway webhooks are mounted without it.
func BillingRoutes(api fiber.Router, d BillingDeps, auth fiber.Handler) {
	billing := api.Group("/billing")

	paymentRoutes.PaymentRoutes(billing, paymentController.NewPaymentController(d.DB, d.Reconciler), auth)
	invoiceRoutes.InvoiceRoutes(billing, invoiceController.NewInvoiceController(d.DB, d.Reconciler, d.FeePlans), auth)
	receiptRoutes.ReceiptRoutes(billing, receiptController.NewReceiptController(d.Receipts, d.Audit), auth)
}
