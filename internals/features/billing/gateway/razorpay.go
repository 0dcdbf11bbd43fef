package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

type Razorpay struct {
	cfg    RazorpayConfig
	client *fiber.Client
}

func NewRazorpay(cfg RazorpayConfig) *Razorpay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Razorpay{
		cfg: cfg,
		client: &fiber.Client{
			JSONEncoder: sonic.Marshal,
			JSONDecoder: sonic.Unmarshal,
		},
	}
}

func (r *Razorpay) Name() string      { return "razorpay" }
func (r *Razorpay) PublicKey() string { return r.cfg.KeyID }

type razorpayOrderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	timeout := r.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	}

	a := r.client.Post(r.cfg.BaseURL + "/v1/orders")
	a.BasicAuth(r.cfg.KeyID, r.cfg.KeySecret)
	a.JSON(razorpayOrderReq{Amount: amount, Currency: currency, Receipt: receipt})
	a.Timeout(timeout)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		log.Printf("[ERROR] razorpay create order: %v", errs[0])
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, errs[0])
	}
	if code < 200 || code >= 300 {
		log.Printf("[ERROR] razorpay create order: status=%d body=%s", code, truncate(body, 256))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, code)
	}

	var out razorpayOrderResp
	if err := sonic.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, fmt.Errorf("%w: bad order response", ErrGatewayUnavailable)
	}
	if out.Amount == 0 {
		out.Amount = amount
	}
	if out.Currency == "" {
		out.Currency = currency
	}
	return &Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency}, nil
}

// VerifyPayment checks the checkout signature over "order_id|payment_id".
func (r *Razorpay) VerifyPayment(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	return VerifySignature([]byte(orderID+"|"+paymentID), signature, r.cfg.KeySecret), nil
}

func (r *Razorpay) VerifyWebhook(body []byte, signature string) bool {
	return VerifySignature(body, signature, r.cfg.WebhookSecret)
}

type razorpayEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (r *Razorpay) ParseEvent(body []byte, eventIDHint string) (*Event, error) {
	var raw razorpayEvent
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(raw.Event) == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedEvent)
	}

	ev := &Event{
		ID:         strings.TrimSpace(raw.ID),
		Kind:       ParseEventKind(raw.Event),
		RawType:    raw.Event,
		OrderRef:   raw.Payload.Payment.Entity.OrderID,
		PaymentRef: raw.Payload.Payment.Entity.ID,
		Amount:     raw.Payload.Payment.Entity.Amount,
	}
	if ev.OrderRef == "" {
		ev.OrderRef = raw.Payload.Order.Entity.ID
	}
	if ev.ID == "" {
		ev.ID = strings.TrimSpace(eventIDHint)
	}
	if ev.ID == "" {
		ev.ID = fallbackEventID(body)
	}
	return ev, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
