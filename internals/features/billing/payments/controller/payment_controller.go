package controller

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	dto "tuitionhub_backend/internals/features/billing/payments/dto"
	model "tuitionhub_backend/internals/features/billing/payments/model"
	svc "tuitionhub_backend/internals/features/billing/payments/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
)

/* =======================================================================
   Controller
======================================================================= */

type PaymentController struct {
	DB         *gorm.DB
	Validator  *validator.Validate
	Reconciler *svc.Reconciler
}

func NewPaymentController(db *gorm.DB, r *svc.Reconciler) *PaymentController {
	return &PaymentController{DB: db, Validator: validator.New(), Reconciler: r}
}

// toHTTP maps reconciliation errors onto status codes.
func toHTTP(err error) error {
	switch {
	case errors.Is(err, svc.ErrInvalidSignature):
		return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
	case errors.Is(err, svc.ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	case errors.Is(err, svc.ErrMalformedEvent):
		return fiber.NewError(fiber.StatusBadRequest, "malformed event")
	case errors.Is(err, svc.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, svc.ErrInvoiceNotPending):
		return fiber.NewError(fiber.StatusNotFound, "invoice not found or not pending")
	case errors.Is(err, svc.ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	case errors.Is(err, svc.ErrInvoiceClosed):
		return fiber.NewError(fiber.StatusConflict, "invoice is closed, payment needs manual reconciliation")
	case errors.Is(err, svc.ErrGatewayUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, "payment gateway unavailable")
	}
	log.Printf("[ERROR] billing: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "internal error")
}

/* =======================================================================
   Online
======================================================================= */

// POST /billing/payments/online/create-order
func (h *PaymentController) CreateOrder(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	var scope *int64
	if id.IsStudent() {
		scope = id.StudentID
	}
	actor := id.UserID
	res, err := h.Reconciler.CreateOrder(c.UserContext(), req.InvoiceID, scope, &actor)
	if err != nil {
		return toHTTP(err)
	}
	// checkout reads order_id and key_id at the top level
	return c.JSON(dto.FromOrder(res))
}

// POST /billing/payments/online/verify
func (h *PaymentController) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	var actor *int64
	if id, err := authctx.FromCtx(c); err == nil {
		actor = &id.UserID
	}

	res, err := h.Reconciler.VerifyPayment(c.UserContext(), req.ToInput(actor))
	if err != nil {
		return toHTTP(err)
	}
	msg := "Payment verified"
	if res.AlreadyPaid {
		msg = "Payment already verified"
	}
	return helper.Success(c, msg, dto.VerifyResponse{
		InvoiceID:   res.Invoice.InvoiceID,
		AlreadyPaid: res.AlreadyPaid,
		Payment:     dto.FromModel(res.Payment),
	})
}

// POST /billing/webhooks/:provider
func (h *PaymentController) Webhook(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	if provider != h.Reconciler.Gateway().Name() {
		return fiber.NewError(fiber.StatusNotFound, "unknown webhook provider")
	}

	// fiber reuses the request buffer after the handler returns
	body := append([]byte(nil), c.Body()...)
	res, err := h.Reconciler.IngestWebhook(c.UserContext(), svc.WebhookInput{
		RawBody:     body,
		Signature:   c.Get("X-Razorpay-Signature"),
		EventIDHint: c.Get("X-Razorpay-Event-Id"),
	})
	if err != nil {
		if errors.Is(err, svc.ErrInvalidSignature) {
			log.Printf("[WEBHOOK] %s invalid signature from %s", provider, c.IP())
		}
		return toHTTP(err)
	}
	log.Printf("[WEBHOOK] %s %s %s ok (duplicate=%v)", provider, res.Kind, res.EventID, res.Duplicate)
	return c.JSON(fiber.Map{"status": "ok"})
}

/* =======================================================================
   Manual (staff)
======================================================================= */

// POST /billing/payments/manual
func (h *PaymentController) CreateManual(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	var req dto.ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	res, err := h.Reconciler.RecordManualPayment(c.UserContext(), req.ToInput(id.UserID))
	if err != nil {
		return toHTTP(err)
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Payment recorded", fiber.Map{
		"invoice_id": res.Invoice.InvoiceID,
		"payment":    dto.FromModel(&res.Payment),
	})
}

/* =======================================================================
   List
======================================================================= */

// GET /billing/payments?student_id=&invoice_id=&status=&page=&per_page=
func (h *PaymentController) List(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	pg := helper.ResolvePaging(c, 20, 100)

	q := h.DB.WithContext(c.UserContext()).Model(&model.PaymentModel{})
	if id.IsStudent() {
		q = q.Where("payment_student_id = ?", *id.StudentID)
	} else if v := strings.TrimSpace(c.Query("student_id")); v != "" {
		sid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid student_id")
		}
		q = q.Where("payment_student_id = ?", sid)
	}
	if v := strings.TrimSpace(c.Query("invoice_id")); v != "" {
		iid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid invoice_id")
		}
		q = q.Where("payment_invoice_id = ?", iid)
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		q = q.Where("payment_status = ?", v)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "count payments failed")
	}
	var rows []model.PaymentModel
	if err := q.Order("payment_id DESC").Offset(pg.Offset).Limit(pg.Limit).Find(&rows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "list payments failed")
	}
	return helper.JsonList(c, dto.FromModels(rows), helper.BuildPagination(pg, total, len(rows)))
}
