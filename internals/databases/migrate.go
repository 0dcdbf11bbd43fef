package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	academicsModel "tuitionhub_backend/internals/features/academics/model"
	auditModel "tuitionhub_backend/internals/features/audit/model"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	paymentModel "tuitionhub_backend/internals/features/billing/payments/model"
	receiptModel "tuitionhub_backend/internals/features/billing/receipts/model"
)

// Migrate brings the billing tables up to date. Runs on Postgres in
// production (billingctl migrate) and on SQLite in tests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&academicsModel.UserModel{},
		&academicsModel.StudentModel{},
		&academicsModel.BatchModel{},
		&academicsModel.EnrollmentModel{},
		&invoiceModel.FeePlanModel{},
		&invoiceModel.InvoiceModel{},
		&paymentModel.PaymentModel{},
		&paymentModel.WebhookEventModel{},
		&receiptModel.ReceiptModel{},
		&auditModel.AuditLogModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// At most one SUCCESS payment per invoice, even if two reconciliations race.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_invoice_success
		    ON payments (payment_invoice_id)
		 WHERE payment_status = 'SUCCESS'
	`).Error; err != nil {
		return fmt.Errorf("create uq_payments_invoice_success: %w", err)
	}

	log.Println("[INFO] billing schema migrated")
	return nil
}
