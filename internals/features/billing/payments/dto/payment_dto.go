package dto

import (
	"strings"
	"time"

	"tuitionhub_backend/internals/features/billing/payments/model"
	"tuitionhub_backend/internals/features/billing/payments/service"
)

/* =========================================================
   REQUEST
========================================================= */

type CreateOrderRequest struct {
	InvoiceID int64 `json:"invoice_id" validate:"required,gt=0"`
}

// VerifyRequest carries the checkout callback fields. Field names follow the
// Razorpay checkout handler; Midtrans clients send the transaction id as
// razorpay_payment_id and any non-empty signature.
type VerifyRequest struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

func (r VerifyRequest) ToInput(actorID *int64) service.VerifyInput {
	return service.VerifyInput{
		OrderRef:   r.OrderID,
		PaymentRef: r.PaymentID,
		Signature:  r.Signature,
		ActorID:    actorID,
	}
}

type ManualPaymentRequest struct {
	StudentID   int64   `json:"student_id" validate:"required,gt=0"`
	BatchID     int64   `json:"batch_id" validate:"required,gt=0"`
	AmountCents int64   `json:"amount_cents" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	Mode        string  `json:"payment_mode" validate:"required,oneof=CASH UPI CHEQUE cash upi cheque"`
	PaidOn      *string `json:"paid_on" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNo string  `json:"reference_no" validate:"omitempty,max=120"`
	Notes       string  `json:"notes" validate:"omitempty,max=2000"`
}

func (r ManualPaymentRequest) ToInput(actorID int64) service.ManualPaymentInput {
	in := service.ManualPaymentInput{
		StudentID:   r.StudentID,
		BatchID:     r.BatchID,
		AmountCents: r.AmountCents,
		Currency:    r.Currency,
		Mode:        model.PaymentMode(strings.ToUpper(r.Mode)),
		ReferenceNo: r.ReferenceNo,
		Notes:       r.Notes,
		ActorID:     actorID,
	}
	if r.PaidOn != nil {
		if t, err := time.Parse("2006-01-02", *r.PaidOn); err == nil {
			in.PaidOn = &t
		}
	}
	return in
}

/* =========================================================
   RESPONSE
========================================================= */

type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
	Gateway     string `json:"gateway"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

func FromOrder(o *service.OrderResult) CreateOrderResponse {
	return CreateOrderResponse{
		OrderID:     o.OrderID,
		Amount:      o.Amount,
		Currency:    o.Currency,
		KeyID:       o.KeyID,
		Gateway:     o.Gateway,
		Token:       o.Token,
		RedirectURL: o.RedirectURL,
	}
}

type PaymentResponse struct {
	PaymentID         int64      `json:"payment_id"`
	InvoiceID         int64      `json:"invoice_id"`
	StudentID         int64      `json:"student_id"`
	BatchID           int64      `json:"batch_id"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Mode              string     `json:"payment_mode"`
	Provider          string     `json:"provider"`
	Gateway           *string    `json:"gateway,omitempty"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	ProviderOrderID   *string    `json:"provider_order_id,omitempty"`
	Status            string     `json:"status"`
	PaidOn            *time.Time `json:"paid_on,omitempty"`
	ReferenceNo       *string    `json:"reference_no,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func FromModel(m *model.PaymentModel) *PaymentResponse {
	if m == nil {
		return nil
	}
	return &PaymentResponse{
		PaymentID:         m.PaymentID,
		InvoiceID:         m.PaymentInvoiceID,
		StudentID:         m.PaymentStudentID,
		BatchID:           m.PaymentBatchID,
		AmountCents:       m.PaymentAmountCents,
		Currency:          m.PaymentCurrency,
		Mode:              string(m.PaymentMode),
		Provider:          string(m.PaymentProvider),
		Gateway:           m.PaymentGateway,
		ProviderPaymentID: m.PaymentProviderPaymentID,
		ProviderOrderID:   m.PaymentProviderOrderID,
		Status:            string(m.PaymentStatus),
		PaidOn:            m.PaymentPaidOn,
		ReferenceNo:       m.PaymentReferenceNo,
		Notes:             m.PaymentNotes,
		CreatedAt:         m.PaymentCreatedAt,
	}
}

func FromModels(ms []model.PaymentModel) []*PaymentResponse {
	out := make([]*PaymentResponse, 0, len(ms))
	for i := range ms {
		out = append(out, FromModel(&ms[i]))
	}
	return out
}

type VerifyResponse struct {
	InvoiceID   int64            `json:"invoice_id"`
	AlreadyPaid bool             `json:"already_paid"`
	Payment     *PaymentResponse `json:"payment,omitempty"`
}
