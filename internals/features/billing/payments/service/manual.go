package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	auditService "tuitionhub_backend/internals/features/audit/service"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	"tuitionhub_backend/internals/features/billing/payments/model"
)

type ManualPaymentInput struct {
	StudentID   int64
	BatchID     int64
	AmountCents int64
	Currency    string
	Mode        model.PaymentMode
	PaidOn      *time.Time
	ReferenceNo string
	Notes       string
	ActorID     int64
}

type ManualPaymentResult struct {
	Invoice invoiceModel.InvoiceModel
	Payment model.PaymentModel
}

// RecordManualPayment books cash/UPI/cheque money received at the desk: a PAID
// invoice and its SUCCESS payment, both or neither.
func (r *Reconciler) RecordManualPayment(ctx context.Context, in ManualPaymentInput) (*ManualPaymentResult, error) {
	mode := model.PaymentMode(strings.ToUpper(strings.TrimSpace(string(in.Mode))))
	switch mode {
	case model.PaymentModeCash, model.PaymentModeUPI, model.PaymentModeCheque:
	default:
		return nil, fmt.Errorf("%w: payment_mode must be CASH, UPI or CHEQUE", ErrInvalidInput)
	}
	if in.StudentID <= 0 || in.BatchID <= 0 || in.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: student_id, batch_id and amount are required", ErrInvalidInput)
	}

	now := r.now().UTC()
	paidOn := now
	if in.PaidOn != nil && !in.PaidOn.IsZero() {
		paidOn = in.PaidOn.UTC()
	}
	actor := in.ActorID

	var out ManualPaymentResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out.Invoice = invoiceModel.InvoiceModel{
			InvoiceStudentID:   in.StudentID,
			InvoiceBatchID:     in.BatchID,
			InvoiceAmountCents: in.AmountCents,
			InvoiceCurrency:    normCurrency(in.Currency),
			InvoiceDueOn:       dateOnly(paidOn),
			InvoiceStatus:      invoiceModel.InvoiceStatusPaid,
		}
		if err := tx.Create(&out.Invoice).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		out.Payment = model.PaymentModel{
			PaymentInvoiceID:   out.Invoice.InvoiceID,
			PaymentStudentID:   in.StudentID,
			PaymentBatchID:     in.BatchID,
			PaymentAmountCents: in.AmountCents,
			PaymentCurrency:    out.Invoice.InvoiceCurrency,
			PaymentMode:        mode,
			PaymentProvider:    model.PaymentProviderManual,
			PaymentStatus:      model.PaymentStatusSuccess,
			PaymentPaidOn:      &paidOn,
			PaymentReferenceNo: strPtr(strings.TrimSpace(in.ReferenceNo)),
			PaymentNotes:       strPtr(strings.TrimSpace(in.Notes)),
			PaymentCreatedBy:   &actor,
		}
		if err := tx.Create(&out.Payment).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.receipts.IssueAsync(out.Payment.PaymentID)
	r.audit.Record(ctx, auditService.Entry{
		ActorID:  &actor,
		Action:   auditService.ActionCreateManualPayment,
		Entity:   "payments",
		EntityID: &out.Payment.PaymentID,
		After:    out.Payment,
	})
	return &out, nil
}
