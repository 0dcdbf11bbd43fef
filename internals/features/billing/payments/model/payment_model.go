// file: internals/features/billing/payments/model/payment_model.go
package model

import "time"

/*
  payments = one settlement attempt of an invoice.
  - rows are never updated after insert
  - at most one SUCCESS row per invoice: guarded by the invoice status
    transition and by the partial unique index uq_payments_invoice_success
    (created in databases.Migrate)
*/
type PaymentModel struct {
	PaymentID        int64 `gorm:"column:payment_id;primaryKey;autoIncrement" json:"payment_id"`
	PaymentInvoiceID int64 `gorm:"column:payment_invoice_id;not null;index:idx_payments_invoice" json:"payment_invoice_id"`
	PaymentStudentID int64 `gorm:"column:payment_student_id;not null;index:idx_payments_student" json:"payment_student_id"`
	PaymentBatchID   int64 `gorm:"column:payment_batch_id;not null" json:"payment_batch_id"`

	PaymentAmountCents int64  `gorm:"column:payment_amount_cents;not null;check:payment_amount_cents >= 0" json:"payment_amount_cents"`
	PaymentCurrency    string `gorm:"column:payment_currency;type:varchar(3);not null" json:"payment_currency"`

	PaymentMode     PaymentMode     `gorm:"column:payment_mode;type:varchar(16);not null" json:"payment_mode"`
	PaymentProvider PaymentProvider `gorm:"column:payment_provider;type:varchar(16);not null" json:"payment_provider"`
	PaymentGateway  *string         `gorm:"column:payment_gateway;type:varchar(20)" json:"payment_gateway,omitempty"`

	PaymentProviderPaymentID *string `gorm:"column:payment_provider_payment_id;type:varchar(64)" json:"payment_provider_payment_id,omitempty"`
	PaymentProviderOrderID   *string `gorm:"column:payment_provider_order_id;type:varchar(64);index:idx_payments_order" json:"payment_provider_order_id,omitempty"`

	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null" json:"payment_status"`
	PaymentPaidOn *time.Time    `gorm:"column:payment_paid_on" json:"payment_paid_on,omitempty"`

	PaymentReferenceNo *string `gorm:"column:payment_reference_no;type:varchar(120)" json:"payment_reference_no,omitempty"`
	PaymentNotes       *string `gorm:"column:payment_notes;type:text" json:"payment_notes,omitempty"`
	PaymentCreatedBy   *int64  `gorm:"column:payment_created_by" json:"payment_created_by,omitempty"`

	PaymentCreatedAt time.Time `gorm:"column:payment_created_at;autoCreateTime" json:"payment_created_at"`
	PaymentUpdatedAt time.Time `gorm:"column:payment_updated_at;autoUpdateTime" json:"payment_updated_at"`
}

func (PaymentModel) TableName() string { return "payments" }
