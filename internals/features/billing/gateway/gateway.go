// Package gateway talks to the online payment provider: remote order creation
// and signature checks. Adapters are stateless and safe for concurrent use.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMalformedEvent     = errors.New("malformed webhook event")
	ErrUnsupportedAmount  = errors.New("amount not supported by gateway")
)

type EventKind string

const (
	EventPaymentCaptured EventKind = "payment.captured"
	EventOrderPaid       EventKind = "order.paid"
	EventPaymentFailed   EventKind = "payment.failed"
	EventUnknown         EventKind = "unknown"
)

// ParseEventKind maps a provider event name onto the closed set above.
func ParseEventKind(s string) EventKind {
	switch EventKind(strings.ToLower(strings.TrimSpace(s))) {
	case EventPaymentCaptured:
		return EventPaymentCaptured
	case EventOrderPaid:
		return EventOrderPaid
	case EventPaymentFailed:
		return EventPaymentFailed
	}
	return EventUnknown
}

// IsCapture reports kinds that settle an invoice.
func (k EventKind) IsCapture() bool {
	return k == EventPaymentCaptured || k == EventOrderPaid
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	// Token/RedirectURL are set by gateways with a hosted checkout (Midtrans Snap).
	Token       string
	RedirectURL string
}

type Event struct {
	ID         string
	Kind       EventKind
	RawType    string
	OrderRef   string
	PaymentRef string
	Amount     int64
}

type Gateway interface {
	Name() string
	PublicKey() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	// VerifyPayment confirms a checkout callback before any lookup happens.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (bool, error)
	// VerifyWebhook must be given the exact bytes received.
	VerifyWebhook(body []byte, signature string) bool
	ParseEvent(body []byte, eventIDHint string) (*Event, error)
}

// VerifySignature checks a hex HMAC-SHA256 of payload under secret in
// constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign is the producing side of VerifySignature.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func fallbackEventID(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}
