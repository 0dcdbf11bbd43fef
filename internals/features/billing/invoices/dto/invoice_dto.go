package dto

import (
	"time"

	"tuitionhub_backend/internals/features/billing/invoices/model"
)

type CreateInvoiceRequest struct {
	StudentID   int64  `json:"student_id" validate:"required,gt=0"`
	BatchID     int64  `json:"batch_id" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	DueOn       string `json:"due_on" validate:"required,datetime=2006-01-02"`
}

func (r CreateInvoiceRequest) DueDate() time.Time {
	t, _ := time.Parse("2006-01-02", r.DueOn)
	return t
}

type CreateFeePlanRequest struct {
	BatchID     int64  `json:"batch_id" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Frequency   string `json:"frequency" validate:"required,oneof=MONTHLY QUARTERLY YEARLY monthly quarterly yearly"`
}

type GenerateRequest struct {
	AsOf string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

type InvoiceResponse struct {
	InvoiceID   int64     `json:"invoice_id"`
	StudentID   int64     `json:"student_id"`
	BatchID     int64     `json:"batch_id"`
	FeePlanID   *int64    `json:"fee_plan_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	DueOn       string    `json:"due_on"`
	Status      string    `json:"status"`
	OrderRef    *string   `json:"order_ref,omitempty"`
	Gateway     *string   `json:"gateway,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromModel(m *model.InvoiceModel) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:   m.InvoiceID,
		StudentID:   m.InvoiceStudentID,
		BatchID:     m.InvoiceBatchID,
		FeePlanID:   m.InvoiceFeePlanID,
		AmountCents: m.InvoiceAmountCents,
		Currency:    m.InvoiceCurrency,
		DueOn:       m.InvoiceDueOn.Format("2006-01-02"),
		Status:      string(m.InvoiceStatus),
		OrderRef:    m.InvoiceOrderRef,
		Gateway:     m.InvoiceGateway,
		CreatedAt:   m.InvoiceCreatedAt,
		UpdatedAt:   m.InvoiceUpdatedAt,
	}
}

func FromModels(ms []model.InvoiceModel) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(ms))
	for i := range ms {
		out = append(out, FromModel(&ms[i]))
	}
	return out
}
