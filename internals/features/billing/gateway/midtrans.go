package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

type MidtransConfig struct {
	ServerKey     string
	ClientKey     string
	UseProduction bool
	Timeout       time.Duration
}

// Midtrans collects through Snap. Midtrans amounts are whole currency units,
// so minor units are divided by 100 on the way out.
type Midtrans struct {
	cfg  MidtransConfig
	snap snap.Client
	core coreapi.Client
}

func NewMidtrans(cfg MidtransConfig) *Midtrans {
	env := midtrans.Sandbox
	if cfg.UseProduction {
		env = midtrans.Production
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	m := &Midtrans{cfg: cfg}
	m.snap.New(cfg.ServerKey, env)
	m.core.New(cfg.ServerKey, env)
	return m
}

func (m *Midtrans) Name() string      { return "midtrans" }
func (m *Midtrans) PublicKey() string { return m.cfg.ClientKey }

// withTimeout runs fn off the caller's goroutine; the SDK calls take no context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	}
}

func (m *Midtrans) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	// snap takes whole rupiah; sending amount/100 would drop the remainder
	if amount <= 0 || amount%100 != 0 {
		return nil, fmt.Errorf("%w: %d minor units", ErrUnsupportedAmount, amount)
	}
	// receipt labels repeat across retries; Midtrans order ids must not
	// (max 50 chars)
	orderID := receipt + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount / 100,
		},
	}

	resp, err := withTimeout(ctx, m.cfg.Timeout, func() (*snap.Response, error) {
		r, merr := m.snap.CreateTransaction(req)
		if merr != nil {
			return nil, merr
		}
		return r, nil
	})
	if err != nil {
		log.Printf("[ERROR] midtrans create transaction %s: %v", orderID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &Order{
		ID:          orderID,
		Amount:      amount,
		Currency:    currency,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// VerifyPayment asks Midtrans for the transaction status. The paymentID must
// match the transaction id Midtrans reports; signature is unused.
func (m *Midtrans) VerifyPayment(ctx context.Context, orderID, paymentID, _ string) (bool, error) {
	st, err := withTimeout(ctx, m.cfg.Timeout, func() (*coreapi.TransactionStatusResponse, error) {
		r, merr := m.core.CheckTransaction(orderID)
		if merr != nil {
			return nil, merr
		}
		return r, nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if st.TransactionID != paymentID {
		return false, nil
	}
	return midtransSettled(st.TransactionStatus, st.FraudStatus), nil
}

func midtransSettled(status, fraud string) bool {
	switch strings.ToLower(status) {
	case "settlement":
		return true
	case "capture":
		return fraud == "" || strings.EqualFold(fraud, "accept")
	}
	return false
}

type midtransNotif struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// MidtransSignature is SHA512(order_id + status_code + gross_amount + server key).
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}

// VerifyWebhook reads the signature from the body; the header value is ignored.
func (m *Midtrans) VerifyWebhook(body []byte, _ string) bool {
	var n midtransNotif
	if err := sonic.Unmarshal(body, &n); err != nil {
		return false
	}
	want := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, m.cfg.ServerKey)
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (m *Midtrans) ParseEvent(body []byte, eventIDHint string) (*Event, error) {
	var n midtransNotif
	if err := sonic.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if n.OrderID == "" || n.TransactionStatus == "" {
		return nil, fmt.Errorf("%w: missing order_id/transaction_status", ErrMalformedEvent)
	}

	kind := EventUnknown
	switch strings.ToLower(n.TransactionStatus) {
	case "settlement", "capture":
		if midtransSettled(n.TransactionStatus, n.FraudStatus) {
			kind = EventPaymentCaptured
		} else {
			kind = EventPaymentFailed
		}
	case "deny", "cancel", "expire", "failure":
		kind = EventPaymentFailed
	}

	ev := &Event{
		Kind:       kind,
		RawType:    n.TransactionStatus,
		OrderRef:   n.OrderID,
		PaymentRef: n.TransactionID,
		Amount:     parseGross(n.GrossAmount),
	}
	switch {
	case n.TransactionID != "":
		ev.ID = n.TransactionID + ":" + n.TransactionStatus
	case eventIDHint != "":
		ev.ID = eventIDHint
	default:
		ev.ID = fallbackEventID(body)
	}
	return ev, nil
}

// parseGross turns "50000.00" into minor units.
func parseGross(s string) int64 {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	frac = (frac + "00")[:2]
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	return w*100 + f
}
