package service

import (
	"errors"

	"tuitionhub_backend/internals/features/billing/gateway"
	receiptService "tuitionhub_backend/internals/features/billing/receipts/service"
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMissingFields     = errors.New("missing required fields")
	ErrInvoiceNotPending = errors.New("invoice not found or not pending")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvoiceClosed     = errors.New("invoice is closed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPersistence       = errors.New("persistence failure")

	ErrGatewayUnavailable     = gateway.ErrGatewayUnavailable
	ErrMalformedEvent         = gateway.ErrMalformedEvent
	ErrDuplicateReceiptNumber = receiptService.ErrDuplicateReceiptNumber
)

// errAlreadySettled rolls a transaction back after losing the insert race on
// uq_payments_invoice_success.
var errAlreadySettled = errors.New("invoice already settled")
