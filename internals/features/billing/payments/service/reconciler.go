package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	database "tuitionhub_backend/internals/databases"
	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/gateway"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	"tuitionhub_backend/internals/features/billing/payments/model"
)

type ReceiptIssuer interface {
	IssueAsync(paymentID int64)
}

type AuditRecorder interface {
	Record(ctx context.Context, e auditService.Entry)
}

// Reconciler owns every invoice status write: PENDING→PAID, PENDING→FAILED,
// PENDING→CANCELLED. Each write is guarded by "WHERE invoice_status = 'PENDING'".
type Reconciler struct {
	db       *gorm.DB
	gw       gateway.Gateway
	receipts ReceiptIssuer
	audit    AuditRecorder
	now      func() time.Time
}

func NewReconciler(db *gorm.DB, gw gateway.Gateway, receipts ReceiptIssuer, audit AuditRecorder) *Reconciler {
	return &Reconciler{db: db, gw: gw, receipts: receipts, audit: audit, now: time.Now}
}

func (r *Reconciler) Gateway() gateway.Gateway { return r.gw }

/* =========================================================
   CREATE ORDER
========================================================= */

type OrderResult struct {
	InvoiceID   int64
	OrderID     string
	Amount      int64
	Currency    string
	KeyID       string
	Gateway     string
	Token       string
	RedirectURL string
}

// CreateOrder opens a gateway order for a PENDING invoice. studentID scopes
// the lookup to one student; nil means unrestricted. Concurrent calls for the
// same invoice: last writer wins.
func (r *Reconciler) CreateOrder(ctx context.Context, invoiceID int64, studentID *int64, actorID *int64) (*OrderResult, error) {
	db := r.db.WithContext(ctx)

	var inv invoiceModel.InvoiceModel
	q := db.Where("invoice_id = ?", invoiceID)
	if studentID != nil {
		q = q.Where("invoice_student_id = ?", *studentID)
	}
	if err := q.Take(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotPending
		}
		return nil, fmt.Errorf("%w: load invoice: %v", ErrPersistence, err)
	}
	if inv.InvoiceStatus != invoiceModel.InvoiceStatusPending {
		return nil, ErrInvoiceNotPending
	}

	order, err := r.gw.CreateOrder(ctx, inv.InvoiceAmountCents, inv.InvoiceCurrency, fmt.Sprintf("receipt_inv_%d", inv.InvoiceID))
	if err != nil {
		if errors.Is(err, gateway.ErrUnsupportedAmount) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	gwName := r.gw.Name()
	res := db.Model(&invoiceModel.InvoiceModel{}).
		Where("invoice_id = ? AND invoice_status = ?", inv.InvoiceID, invoiceModel.InvoiceStatusPending).
		Updates(map[string]any{
			"invoice_order_ref":  order.ID,
			"invoice_gateway":    gwName,
			"invoice_updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: save order ref: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		// settled or cancelled while the gateway call was in flight
		return nil, ErrInvoiceNotPending
	}

	r.audit.Record(ctx, auditService.Entry{
		ActorID:  actorID,
		Action:   auditService.ActionCreateOrder,
		Entity:   "invoices",
		EntityID: &inv.InvoiceID,
		After:    map[string]any{"order_id": order.ID, "gateway": gwName},
	})

	return &OrderResult{
		InvoiceID:   inv.InvoiceID,
		OrderID:     order.ID,
		Amount:      inv.InvoiceAmountCents,
		Currency:    inv.InvoiceCurrency,
		KeyID:       r.gw.PublicKey(),
		Gateway:     gwName,
		Token:       order.Token,
		RedirectURL: order.RedirectURL,
	}, nil
}

/* =========================================================
   VERIFY (checkout callback)
========================================================= */

type VerifyInput struct {
	OrderRef   string
	PaymentRef string
	Signature  string
	ActorID    *int64
}

type SettleResult struct {
	Invoice     invoiceModel.InvoiceModel
	Payment     *model.PaymentModel
	AlreadyPaid bool
}

// VerifyPayment checks the signature before touching the store, then settles
// the invoice. Repeating a successful verify returns the same payment.
func (r *Reconciler) VerifyPayment(ctx context.Context, in VerifyInput) (*SettleResult, error) {
	in.OrderRef = strings.TrimSpace(in.OrderRef)
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	in.Signature = strings.TrimSpace(in.Signature)
	if in.OrderRef == "" || in.PaymentRef == "" || in.Signature == "" {
		return nil, ErrMissingFields
	}

	ok, err := r.gw.VerifyPayment(ctx, in.OrderRef, in.PaymentRef, in.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("[WARN] verify: bad signature order=%s payment=%s", in.OrderRef, in.PaymentRef)
		return nil, ErrInvalidSignature
	}

	return r.settle(ctx, in.OrderRef, in.PaymentRef, in.ActorID, auditService.ActionVerifyOnlinePayment)
}

// settle moves the invoice bound to orderRef PENDING→PAID and inserts its
// SUCCESS payment in one transaction.
func (r *Reconciler) settle(ctx context.Context, orderRef, paymentRef string, actorID *int64, action string) (*SettleResult, error) {
	var out SettleResult
	now := r.now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_order_ref = ?", orderRef).Take(&out.Invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("%w: load invoice: %v", ErrPersistence, err)
		}

		switch out.Invoice.InvoiceStatus {
		case invoiceModel.InvoiceStatusPaid:
			out.AlreadyPaid = true
			return nil
		case invoiceModel.InvoiceStatusFailed, invoiceModel.InvoiceStatusCancelled:
			return ErrInvoiceClosed
		}

		res := tx.Model(&invoiceModel.InvoiceModel{}).
			Where("invoice_id = ? AND invoice_status = ?", out.Invoice.InvoiceID, invoiceModel.InvoiceStatusPending).
			Updates(map[string]any{
				"invoice_status":     invoiceModel.InvoiceStatusPaid,
				"invoice_updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("%w: mark paid: %v", ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			// lost the race; see who won
			if err := tx.Where("invoice_id = ?", out.Invoice.InvoiceID).Take(&out.Invoice).Error; err != nil {
				return fmt.Errorf("%w: reload invoice: %v", ErrPersistence, err)
			}
			if out.Invoice.InvoiceStatus == invoiceModel.InvoiceStatusPaid {
				out.AlreadyPaid = true
				return nil
			}
			return ErrInvoiceClosed
		}

		gw := r.gw.Name()
		p := model.PaymentModel{
			PaymentInvoiceID:         out.Invoice.InvoiceID,
			PaymentStudentID:         out.Invoice.InvoiceStudentID,
			PaymentBatchID:           out.Invoice.InvoiceBatchID,
			PaymentAmountCents:       out.Invoice.InvoiceAmountCents,
			PaymentCurrency:          out.Invoice.InvoiceCurrency,
			PaymentMode:              model.PaymentModeOnline,
			PaymentProvider:          model.PaymentProviderGateway,
			PaymentGateway:           &gw,
			PaymentProviderPaymentID: strPtr(paymentRef),
			PaymentProviderOrderID:   strPtr(orderRef),
			PaymentStatus:            model.PaymentStatusSuccess,
			PaymentPaidOn:            &now,
			PaymentCreatedBy:         actorID,
		}
		if err := tx.Create(&p).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errAlreadySettled
			}
			return fmt.Errorf("%w: insert payment: %v", ErrPersistence, err)
		}
		out.Invoice.InvoiceStatus = invoiceModel.InvoiceStatusPaid
		out.Payment = &p
		return nil
	})

	switch {
	case errors.Is(err, errAlreadySettled):
		out.AlreadyPaid = true
	case errors.Is(err, ErrInvoiceClosed):
		log.Printf("[WARN] payment %s for order %s hit closed invoice=%d (%s), needs manual reconciliation",
			paymentRef, orderRef, out.Invoice.InvoiceID, out.Invoice.InvoiceStatus)
		r.audit.Record(ctx, auditService.Entry{
			ActorID:  actorID,
			Action:   auditService.ActionPaymentOnClosed,
			Entity:   "invoices",
			EntityID: &out.Invoice.InvoiceID,
			Before:   map[string]any{"status": out.Invoice.InvoiceStatus},
			After:    map[string]any{"order_id": orderRef, "payment_id": paymentRef},
		})
		return nil, err
	case err != nil:
		return nil, err
	}

	if out.AlreadyPaid {
		p, err := r.successPayment(ctx, out.Invoice.InvoiceID)
		if err != nil {
			return nil, err
		}
		out.Payment = p
		return &out, nil
	}

	r.receipts.IssueAsync(out.Payment.PaymentID)
	r.audit.Record(ctx, auditService.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payments",
		EntityID: &out.Payment.PaymentID,
		Before:   map[string]any{"invoice_id": out.Invoice.InvoiceID, "status": invoiceModel.InvoiceStatusPending},
		After:    map[string]any{"invoice_id": out.Invoice.InvoiceID, "status": invoiceModel.InvoiceStatusPaid, "provider_payment_id": paymentRef},
	})
	return &out, nil
}

func (r *Reconciler) successPayment(ctx context.Context, invoiceID int64) (*model.PaymentModel, error) {
	var p model.PaymentModel
	err := r.db.WithContext(ctx).
		Where("payment_invoice_id = ? AND payment_status = ?", invoiceID, model.PaymentStatusSuccess).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load payment: %v", ErrPersistence, err)
	}
	return &p, nil
}

/* =========================================================
   CANCEL / CREATE (staff)
========================================================= */

func (r *Reconciler) CancelInvoice(ctx context.Context, invoiceID int64, actorID *int64) (*invoiceModel.InvoiceModel, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&invoiceModel.InvoiceModel{}).
		Where("invoice_id = ? AND invoice_status = ?", invoiceID, invoiceModel.InvoiceStatusPending).
		Updates(map[string]any{
			"invoice_status":     invoiceModel.InvoiceStatusCancelled,
			"invoice_updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: cancel invoice: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvoiceNotPending
	}

	var inv invoiceModel.InvoiceModel
	if err := db.Where("invoice_id = ?", invoiceID).Take(&inv).Error; err != nil {
		return nil, fmt.Errorf("%w: reload invoice: %v", ErrPersistence, err)
	}
	r.audit.Record(ctx, auditService.Entry{
		ActorID:  actorID,
		Action:   auditService.ActionCancelInvoice,
		Entity:   "invoices",
		EntityID: &inv.InvoiceID,
		Before:   map[string]any{"status": invoiceModel.InvoiceStatusPending},
		After:    map[string]any{"status": invoiceModel.InvoiceStatusCancelled},
	})
	return &inv, nil
}

type CreateInvoiceInput struct {
	StudentID   int64
	BatchID     int64
	FeePlanID   *int64
	AmountCents int64
	Currency    string
	DueOn       time.Time
}

func (r *Reconciler) CreateInvoice(ctx context.Context, in CreateInvoiceInput, actorID *int64) (*invoiceModel.InvoiceModel, error) {
	if in.StudentID <= 0 || in.BatchID <= 0 || in.AmountCents <= 0 || in.DueOn.IsZero() {
		return nil, ErrInvalidInput
	}
	inv := invoiceModel.InvoiceModel{
		InvoiceStudentID:   in.StudentID,
		InvoiceBatchID:     in.BatchID,
		InvoiceFeePlanID:   in.FeePlanID,
		InvoiceAmountCents: in.AmountCents,
		InvoiceCurrency:    normCurrency(in.Currency),
		InvoiceDueOn:       dateOnly(in.DueOn),
		InvoiceStatus:      invoiceModel.InvoiceStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(&inv).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invoice already exists for this plan and due date", ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: create invoice: %v", ErrPersistence, err)
	}

	r.audit.Record(ctx, auditService.Entry{
		ActorID:  actorID,
		Action:   auditService.ActionCreateInvoice,
		Entity:   "invoices",
		EntityID: &inv.InvoiceID,
		After:    inv,
	})
	return &inv, nil
}

func normCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return invoiceModel.DefaultCurrency
	}
	return c
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
