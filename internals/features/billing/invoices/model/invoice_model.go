// file: internals/features/billing/invoices/model/invoice_model.go
package model

import "time"

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusFailed    InvoiceStatus = "FAILED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsTerminal: PAID, FAILED and CANCELLED have no outgoing transition.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusFailed || s == InvoiceStatusCancelled
}

const DefaultCurrency = "INR"

/*
  invoices = amount owed by one student for one batch enrollment.
  - status is only written by the reconciliation service (payments/service)
  - amount/currency never change once PAID
  - (fee_plan_id, student_id, due_on) unique → fee-plan generation is idempotent per period
*/
type InvoiceModel struct {
	InvoiceID        int64  `gorm:"column:invoice_id;primaryKey;autoIncrement" json:"invoice_id"`
	InvoiceStudentID int64  `gorm:"column:invoice_student_id;not null;index:idx_invoices_student;uniqueIndex:uq_invoices_plan_student_due,priority:2" json:"invoice_student_id"`
	InvoiceBatchID   int64  `gorm:"column:invoice_batch_id;not null;index:idx_invoices_batch" json:"invoice_batch_id"`
	InvoiceFeePlanID *int64 `gorm:"column:invoice_fee_plan_id;uniqueIndex:uq_invoices_plan_student_due,priority:1" json:"invoice_fee_plan_id,omitempty"`

	// Nominal (minor units) & mata uang
	InvoiceAmountCents int64  `gorm:"column:invoice_amount_cents;not null;check:invoice_amount_cents >= 0" json:"invoice_amount_cents"`
	InvoiceCurrency    string `gorm:"column:invoice_currency;type:varchar(3);not null" json:"invoice_currency"`

	InvoiceDueOn  time.Time     `gorm:"column:invoice_due_on;type:date;not null;uniqueIndex:uq_invoices_plan_student_due,priority:3" json:"invoice_due_on"`
	InvoiceStatus InvoiceStatus `gorm:"column:invoice_status;type:varchar(16);not null;index:idx_invoices_status" json:"invoice_status"`

	// Gateway order (last CreateOrder wins)
	InvoiceOrderRef *string `gorm:"column:invoice_order_ref;type:varchar(64);index:idx_invoices_order_ref" json:"invoice_order_ref,omitempty"`
	InvoiceGateway  *string `gorm:"column:invoice_gateway;type:varchar(20)" json:"invoice_gateway,omitempty"`

	InvoiceCreatedAt time.Time `gorm:"column:invoice_created_at;autoCreateTime" json:"invoice_created_at"`
	InvoiceUpdatedAt time.Time `gorm:"column:invoice_updated_at;autoUpdateTime" json:"invoice_updated_at"`
}

func (InvoiceModel) TableName() string { return "invoices" }
