package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tuitionhub_backend/internals/databases/dbtest"
	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/gateway"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	model "tuitionhub_backend/internals/features/billing/payments/model"
	svc "tuitionhub_backend/internals/features/billing/payments/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
)

const (
	keySecret     = "ks"
	webhookSecret = "whs"
)

type stubGateway struct {
	*gateway.Razorpay
	err error
}

func (s *stubGateway) CreateOrder(_ context.Context, amount int64, currency, _ string) (*gateway.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.Order{ID: "order_abc", Amount: amount, Currency: currency}, nil
}

type nopReceipts struct{}

func (nopReceipts) IssueAsync(int64) {}

type nopAudit struct {
	mu sync.Mutex
	n  int
}

func (a *nopAudit) Record(context.Context, auditService.Entry) {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

// asUser fakes the JWT middleware.
func asUser(userID int64, role string, studentID int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(authctx.LocUserID, userID)
		c.Locals(authctx.LocRole, role)
		if studentID > 0 {
			c.Locals(authctx.LocStudentID, studentID)
		}
		return c.Next()
	}
}

type env struct {
	db  *gorm.DB
	gw  *stubGateway
	ctl *PaymentController
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	gw := &stubGateway{Razorpay: gateway.NewRazorpay(gateway.RazorpayConfig{
		KeyID: "rzp_test_key", KeySecret: keySecret, WebhookSecret: webhookSecret,
	})}
	r := svc.NewReconciler(db, gw, nopReceipts{}, &nopAudit{})
	return &env{db: db, gw: gw, ctl: NewPaymentController(db, r)}
}

func (e *env) app(auth fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: helper.ErrorHandler,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
	})
	billing := app.Group("/billing")
	billing.Post("/webhooks/:provider", e.ctl.Webhook)
	pay := billing.Group("/payments", auth)
	pay.Get("/", e.ctl.List)
	pay.Post("/online/create-order", e.ctl.CreateOrder)
	pay.Post("/online/verify", e.ctl.Verify)
	pay.Post("/manual", e.ctl.CreateManual)
	return app
}

func (e *env) seedInvoice(t *testing.T, id, studentID int64, orderRef string) {
	t.Helper()
	inv := invoiceModel.InvoiceModel{
		InvoiceID: id, InvoiceStudentID: studentID, InvoiceBatchID: 1,
		InvoiceAmountCents: 50000, InvoiceCurrency: "INR",
		InvoiceDueOn:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		InvoiceStatus: invoiceModel.InvoiceStatusPending,
	}
	if orderRef != "" {
		inv.InvoiceOrderRef = &orderRef
	}
	require.NoError(t, e.db.Create(&inv).Error)
}

func do(t *testing.T, app *fiber.App, method, path string, body []byte, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 42, 10, "")
	app := e.app(asUser(5, "STUDENT", 10))

	code, body := do(t, app, "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	require.Equal(t, 200, code, string(body))

	var data struct {
		OrderID  string          `json:"order_id"`
		Amount   int64           `json:"amount"`
		Currency string          `json:"currency"`
		KeyID    string          `json:"key_id"`
		Data     json.RawMessage `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(body, &data))
	assert.Empty(t, data.Data, "order fields are not wrapped in an envelope")
	assert.Equal(t, "order_abc", data.OrderID)
	assert.Equal(t, int64(50000), data.Amount)
	assert.Equal(t, "INR", data.Currency)
	assert.Equal(t, "rzp_test_key", data.KeyID)
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 42, 10, "")

	// another student's invoice
	code, _ := do(t, e.app(asUser(6, "STUDENT", 11)), "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	assert.Equal(t, 404, code)

	code, _ = do(t, e.app(asUser(1, "TEACHER", 0)), "POST", "/billing/payments/online/create-order", []byte(`{}`), nil)
	assert.Equal(t, 400, code)

	e.gw.err = gateway.ErrGatewayUnavailable
	code, _ = do(t, e.app(asUser(1, "TEACHER", 0)), "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	assert.Equal(t, 502, code)

	e.gw.err = gateway.ErrUnsupportedAmount
	code, _ = do(t, e.app(asUser(1, "TEACHER", 0)), "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	assert.Equal(t, 400, code)
}

func TestHandlersUseRequestContext(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 42, 10, "")

	// the request deadline middleware hands handlers a user context; once
	// it is done the reconciler must not touch the database
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	expired := func(c *fiber.Ctx) error {
		c.SetUserContext(ctx)
		return asUser(1, "TEACHER", 0)(c)
	}

	code, _ := do(t, e.app(expired), "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	assert.Equal(t, 500, code)

	var inv invoiceModel.InvoiceModel
	require.NoError(t, e.db.First(&inv, "invoice_id = ?", 42).Error)
	assert.Nil(t, inv.InvoiceOrderRef)

	code, _ = do(t, e.app(asUser(1, "TEACHER", 0)), "POST", "/billing/payments/online/create-order", []byte(`{"invoice_id":42}`), nil)
	assert.Equal(t, 200, code)
}

func TestVerifyEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 42, 10, "order_abc")
	app := e.app(asUser(5, "STUDENT", 10))
	sig := gateway.Sign([]byte("order_abc|pay_1"), keySecret)
	body := []byte(`{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"` + sig + `"}`)

	code, _ := do(t, app, "POST", "/billing/payments/online/verify", body, nil)
	assert.Equal(t, 200, code)
	code, _ = do(t, app, "POST", "/billing/payments/online/verify", body, nil)
	assert.Equal(t, 200, code)

	var n int64
	require.NoError(t, e.db.Model(&model.PaymentModel{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	bad := []byte(`{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"00ff"}`)
	code, _ = do(t, app, "POST", "/billing/payments/online/verify", bad, nil)
	assert.Equal(t, 400, code)

	code, _ = do(t, app, "POST", "/billing/payments/online/verify", []byte(`{"razorpay_order_id":"order_abc"}`), nil)
	assert.Equal(t, 400, code)

	sig = gateway.Sign([]byte("order_zzz|pay_1"), keySecret)
	code, _ = do(t, app, "POST", "/billing/payments/online/verify",
		[]byte(`{"razorpay_order_id":"order_zzz","razorpay_payment_id":"pay_1","razorpay_signature":"`+sig+`"}`), nil)
	assert.Equal(t, 404, code)
}

func TestWebhookEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 7, 10, "order_def")
	app := e.app(asUser(1, "TEACHER", 0))
	body := []byte(`{"id":"evt_1","event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_f","order_id":"order_def"}}}}`)
	hdr := map[string]string{"X-Razorpay-Signature": gateway.Sign(body, webhookSecret)}

	for i := 0; i < 2; i++ {
		code, resp := do(t, app, "POST", "/billing/webhooks/razorpay", body, hdr)
		assert.Equal(t, 200, code)
		assert.JSONEq(t, `{"status":"ok"}`, string(resp))
	}

	var inv invoiceModel.InvoiceModel
	require.NoError(t, e.db.First(&inv, "invoice_id = ?", 7).Error)
	assert.Equal(t, invoiceModel.InvoiceStatusFailed, inv.InvoiceStatus)

	code, _ := do(t, app, "POST", "/billing/webhooks/razorpay", body, map[string]string{"X-Razorpay-Signature": "beef"})
	assert.Equal(t, 400, code)

	code, _ = do(t, app, "POST", "/billing/webhooks/stripe", body, hdr)
	assert.Equal(t, 404, code)
}

func TestWebhookEndpointProcessingFailureIs500(t *testing.T) {
	e := newEnv(t)
	e.seedInvoice(t, 42, 10, "order_abc")
	require.NoError(t, e.db.Migrator().DropTable(&model.PaymentModel{}))
	app := e.app(asUser(1, "TEACHER", 0))

	body := []byte(`{"id":"evt_9","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_abc"}}}}`)
	code, _ := do(t, app, "POST", "/billing/webhooks/razorpay", body, map[string]string{"X-Razorpay-Signature": gateway.Sign(body, webhookSecret)})
	assert.Equal(t, 500, code)
}

func TestManualAndListEndpoints(t *testing.T) {
	e := newEnv(t)
	teacher := e.app(asUser(1, "TEACHER", 0))

	code, body := do(t, teacher, "POST", "/billing/payments/manual",
		[]byte(`{"student_id":10,"batch_id":1,"amount_cents":25000,"payment_mode":"CASH","paid_on":"2025-05-02"}`), nil)
	require.Equal(t, 201, code, string(body))

	code, _ = do(t, teacher, "POST", "/billing/payments/manual",
		[]byte(`{"student_id":10,"batch_id":1,"amount_cents":25000,"payment_mode":"ONLINE"}`), nil)
	assert.Equal(t, 400, code)

	code, body = do(t, teacher, "GET", "/billing/payments?student_id=10", nil, nil)
	require.Equal(t, 200, code)
	var list struct {
		Data       []map[string]any  `json:"data"`
		Pagination helper.Pagination `json:"pagination"`
	}
	require.NoError(t, sonic.Unmarshal(body, &list))
	assert.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)

	// a student only sees their own
	code, body = do(t, e.app(asUser(6, "STUDENT", 11)), "GET", "/billing/payments?student_id=10", nil, nil)
	require.Equal(t, 200, code)
	require.NoError(t, sonic.Unmarshal(body, &list))
	assert.Empty(t, list.Data)
}
