package controller

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strconv"
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
	"tuitionhub_backend/internals/features/billing/gateway"
	model "tuitionhub_backend/internals/features/billing/invoices/model"
	invoiceService "tuitionhub_backend/internals/features/billing/invoices/service"
	paymentService "tuitionhub_backend/internals/features/billing/payments/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
	authMiddleware "tuitionhub_backend/internals/middlewares/auth"
)

type nopAudit struct{}

func (nopAudit) Record(context.Context, auditService.Entry) {}

type nopReceipts struct{}

func (nopReceipts) IssueAsync(int64) {}

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

func newApp(t *testing.T, db *gorm.DB, auth fiber.Handler) *fiber.App {
	t.Helper()
	gw := gateway.NewRazorpay(gateway.RazorpayConfig{KeyID: "k", KeySecret: "s", WebhookSecret: "w"})
	r := paymentService.NewReconciler(db, gw, nopReceipts{}, nopAudit{})
	ctl := NewInvoiceController(db, r, invoiceService.NewFeePlanService(db, nopAudit{}))

	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler, JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	billing := app.Group("/billing")
	teacherOnly := authMiddleware.OnlyRoles("", "TEACHER")
	inv := billing.Group("/invoices", auth)
	inv.Get("/", ctl.List)
	inv.Post("/", teacherOnly, ctl.Create)
	inv.Post("/:id/cancel", teacherOnly, ctl.Cancel)
	fp := billing.Group("/fee-plans", auth, teacherOnly)
	fp.Get("/", ctl.ListFeePlans)
	fp.Post("/", ctl.CreateFeePlan)
	fp.Post("/generate", ctl.GenerateDue)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestInvoiceLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	teacher := newApp(t, db, asUser(1, "TEACHER", 0))

	code, body := call(t, teacher, "POST", "/billing/invoices",
		`{"student_id":10,"batch_id":1,"amount_cents":50000,"due_on":"2025-07-01"}`)
	require.Equal(t, 201, code, string(body))

	var created struct {
		Data struct {
			InvoiceID int64  `json:"invoice_id"`
			Status    string `json:"status"`
			DueOn     string `json:"due_on"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(body, &created))
	assert.Equal(t, "PENDING", created.Data.Status)
	assert.Equal(t, "2025-07-01", created.Data.DueOn)

	code, _ = call(t, teacher, "POST", "/billing/invoices", `{"student_id":10,"batch_id":1,"amount_cents":0,"due_on":"2025-07-01"}`)
	assert.Equal(t, 400, code)

	path := "/billing/invoices/" + strconv.FormatInt(created.Data.InvoiceID, 10) + "/cancel"
	code, _ = call(t, teacher, "POST", path, "")
	assert.Equal(t, 200, code)
	code, _ = call(t, teacher, "POST", path, "")
	assert.Equal(t, 404, code)

	var inv model.InvoiceModel
	require.NoError(t, db.First(&inv, "invoice_id = ?", created.Data.InvoiceID).Error)
	assert.Equal(t, model.InvoiceStatusCancelled, inv.InvoiceStatus)
}

func TestStudentSeesOwnInvoicesOnly(t *testing.T) {
	db := dbtest.Open(t)
	for i, sid := range []int64{10, 10, 11} {
		require.NoError(t, db.Create(&model.InvoiceModel{
			InvoiceStudentID: sid, InvoiceBatchID: 1, InvoiceAmountCents: 100, InvoiceCurrency: "INR",
			InvoiceDueOn:  time.Date(2025, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			InvoiceStatus: model.InvoiceStatusPending,
		}).Error)
	}

	student := newApp(t, db, asUser(5, "STUDENT", 10))
	code, body := call(t, student, "GET", "/billing/invoices?student_id=11", "")
	require.Equal(t, 200, code)
	var list struct {
		Data       []map[string]any  `json:"data"`
		Pagination helper.Pagination `json:"pagination"`
	}
	require.NoError(t, sonic.Unmarshal(body, &list))
	assert.Len(t, list.Data, 2)
	assert.Equal(t, int64(2), list.Pagination.Total)

	code, _ = call(t, student, "POST", "/billing/invoices", `{"student_id":10,"batch_id":1,"amount_cents":1,"due_on":"2025-07-01"}`)
	assert.Equal(t, 403, code)
}

func TestFeePlanGenerateEndpoint(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&academicsModel.EnrollmentModel{EnrollmentBatchID: 3, EnrollmentStudentID: 10, EnrollmentIsActive: true}).Error)
	teacher := newApp(t, db, asUser(1, "TEACHER", 0))

	code, body := call(t, teacher, "POST", "/billing/fee-plans", `{"batch_id":3,"amount_cents":90000,"frequency":"YEARLY"}`)
	require.Equal(t, 201, code, string(body))

	code, body = call(t, teacher, "POST", "/billing/fee-plans/generate", `{"as_of":"2025-09-09"}`)
	require.Equal(t, 200, code, string(body))
	var res struct {
		Data struct {
			Created int64 `json:"created"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(body, &res))
	assert.Equal(t, int64(1), res.Data.Created)

	var inv model.InvoiceModel
	require.NoError(t, db.First(&inv).Error)
	assert.Equal(t, "2025-01-01", inv.InvoiceDueOn.Format("2006-01-02"))
	assert.Equal(t, int64(90000), inv.InvoiceAmountCents)
}
