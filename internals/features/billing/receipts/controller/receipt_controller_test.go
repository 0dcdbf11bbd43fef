package controller

import (
	"bytes"
	"context"
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
	academicsModel "tuitionhub_backend/internals/features/academics/model"
	auditService "tuitionhub_backend/internals/features/audit/service"
	paymentModel "tuitionhub_backend/internals/features/billing/payments/model"
	"tuitionhub_backend/internals/features/billing/receipts/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
	"tuitionhub_backend/internals/helpers/storage"
	"tuitionhub_backend/internals/helpers/worker"
	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
)

type memAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *memAudit) Record(_ context.Context, e auditService.Entry) {
	a.mu.Lock()
	a.actions = append(a.actions, e.Action)
	a.mu.Unlock()
}

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

type fixture struct {
	db    *gorm.DB
	gen   *service.Generator
	audit *memAudit
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	pool := worker.New(1, 5*time.Second)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	require.NoError(t, db.Create(&academicsModel.UserModel{UserID: 1, UserName: "Asha Rao", UserEmail: "asha@example.com", UserRole: academicsModel.RoleStudent}).Error)
	require.NoError(t, db.Create(&academicsModel.StudentModel{StudentID: 10, StudentUserID: 1}).Error)
	require.NoError(t, db.Create(&academicsModel.BatchModel{BatchID: 3, BatchName: "JEE 2026"}).Error)

	paid := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	ref := "pay_5"
	require.NoError(t, db.Create(&paymentModel.PaymentModel{
		PaymentID:                5,
		PaymentInvoiceID:         42,
		PaymentStudentID:         10,
		PaymentBatchID:           3,
		PaymentAmountCents:       50000,
		PaymentCurrency:          "INR",
		PaymentMode:              paymentModel.PaymentModeOnline,
		PaymentProvider:          paymentModel.PaymentProviderGateway,
		PaymentProviderPaymentID: &ref,
		PaymentStatus:            paymentModel.PaymentStatusSuccess,
		PaymentPaidOn:            &paid,
	}).Error)

	gen := service.NewGenerator(db, store, pool)
	_, err = gen.Generate(context.Background(), 5)
	require.NoError(t, err)
	return &fixture{db: db, gen: gen, audit: &memAudit{}}
}

func (f *fixture) app(auth fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler, JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	ctl := NewReceiptController(f.gen, f.audit)
	rc := app.Group("/billing/receipts", auth)
	rc.Get("/:payment_id/download", ctl.Download)
	rc.Post("/:payment_id/regenerate", authMiddleware.OnlyRoles("", "TEACHER"), ctl.Regenerate)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string) (int, string, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get(fiber.HeaderContentType), b
}

func TestDownloadReceipt(t *testing.T) {
	f := setup(t)

	code, ct, body := do(t, f.app(asUser(9, "TEACHER", 0)), "GET", "/billing/receipts/5/download")
	require.Equal(t, 200, code, string(body))
	assert.Equal(t, "application/pdf", ct)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	code, _, _ = do(t, f.app(asUser(1, "STUDENT", 10)), "GET", "/billing/receipts/5/download")
	assert.Equal(t, 200, code)
}

func TestDownloadScopedToOwner(t *testing.T) {
	f := setup(t)

	code, _, _ := do(t, f.app(asUser(2, "STUDENT", 11)), "GET", "/billing/receipts/5/download")
	assert.Equal(t, 404, code)

	code, _, _ = do(t, f.app(asUser(9, "TEACHER", 0)), "GET", "/billing/receipts/99/download")
	assert.Equal(t, 404, code)

	code, _, _ = do(t, f.app(asUser(9, "TEACHER", 0)), "GET", "/billing/receipts/abc/download")
	assert.Equal(t, 400, code)
}

func TestRegenerateReceipt(t *testing.T) {
	f := setup(t)

	code, _, _ := do(t, f.app(asUser(1, "STUDENT", 10)), "POST", "/billing/receipts/5/regenerate")
	assert.Equal(t, 403, code)

	code, _, body := do(t, f.app(asUser(9, "TEACHER", 0)), "POST", "/billing/receipts/5/regenerate")
	require.Equal(t, 200, code, string(body))
	assert.Contains(t, string(body), "RCPT-2025-5")
	assert.Equal(t, []string{auditService.ActionRegenerateReceipt}, f.audit.actions)

	var n int64
	require.NoError(t, f.db.Table("receipts").Count(&n).Error)
	assert.Equal(t, int64(1), n)

	code, _, _ = do(t, f.app(asUser(9, "TEACHER", 0)), "POST", "/billing/receipts/77/regenerate")
	assert.Equal(t, 404, code)
}
