package model

type PaymentStatus string
type PaymentMode string
type PaymentProvider string
type WebhookEventStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusPending PaymentStatus = "PENDING"
)

const (
	PaymentModeOnline PaymentMode = "ONLINE"
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeCheque PaymentMode = "CHEQUE"
)

const (
	PaymentProviderGateway PaymentProvider = "GATEWAY"
	PaymentProviderManual  PaymentProvider = "MANUAL"
)

// status processing di webhook_events
const (
	WebhookEventStatusReceived   WebhookEventStatus = "received"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusFailed     WebhookEventStatus = "failed"
)
