package controller

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	dto "tuitionhub_backend/internals/features/billing/invoices/dto"
	model "tuitionhub_backend/internals/features/billing/invoices/model"
	invoiceService "tuitionhub_backend/internals/features/billing/invoices/service"
	paymentService "tuitionhub_backend/internals/features/billing/payments/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
)

type InvoiceController struct {
	DB         *gorm.DB
	Validator  *validator.Validate
	Reconciler *paymentService.Reconciler
	FeePlans   *invoiceService.FeePlanService
}

func NewInvoiceController(db *gorm.DB, r *paymentService.Reconciler, fp *invoiceService.FeePlanService) *InvoiceController {
	return &InvoiceController{DB: db, Validator: validator.New(), Reconciler: r, FeePlans: fp}
}

// POST /billing/invoices
func (h *InvoiceController) Create(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	inv, err := h.Reconciler.CreateInvoice(c.UserContext(), paymentService.CreateInvoiceInput{
		StudentID:   req.StudentID,
		BatchID:     req.BatchID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		DueOn:       req.DueDate(),
	}, &id.UserID)
	if err != nil {
		if errors.Is(err, paymentService.ErrInvalidInput) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		log.Printf("[ERROR] create invoice: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "create invoice failed")
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Invoice created", dto.FromModel(inv))
}

// GET /billing/invoices?status=&student_id=&batch_id=
func (h *InvoiceController) List(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	pg := helper.ResolvePaging(c, 20, 100)

	q := h.DB.WithContext(c.UserContext()).Model(&model.InvoiceModel{})
	if id.IsStudent() {
		q = q.Where("invoice_student_id = ?", *id.StudentID)
	} else if v := strings.TrimSpace(c.Query("student_id")); v != "" {
		sid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid student_id")
		}
		q = q.Where("invoice_student_id = ?", sid)
	}
	if v := strings.TrimSpace(c.Query("batch_id")); v != "" {
		bid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid batch_id")
		}
		q = q.Where("invoice_batch_id = ?", bid)
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		q = q.Where("invoice_status = ?", v)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "count invoices failed")
	}
	var rows []model.InvoiceModel
	if err := q.Order("invoice_due_on DESC, invoice_id DESC").Offset(pg.Offset).Limit(pg.Limit).Find(&rows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "list invoices failed")
	}
	return helper.JsonList(c, dto.FromModels(rows), helper.BuildPagination(pg, total, len(rows)))
}

// POST /billing/invoices/:id/cancel
func (h *InvoiceController) Cancel(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	invoiceID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || invoiceID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	inv, err := h.Reconciler.CancelInvoice(c.UserContext(), invoiceID, &id.UserID)
	if err != nil {
		if errors.Is(err, paymentService.ErrInvoiceNotPending) {
			return fiber.NewError(fiber.StatusNotFound, "invoice not found or not pending")
		}
		log.Printf("[ERROR] cancel invoice %d: %v", invoiceID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "cancel invoice failed")
	}
	return helper.Success(c, "Invoice cancelled", dto.FromModel(inv))
}

/* =======================================================================
   Fee plans
======================================================================= */

// POST /billing/fee-plans
func (h *InvoiceController) CreateFeePlan(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateFeePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}
	plan, err := h.FeePlans.Create(c.UserContext(), invoiceService.CreateFeePlanInput{
		BatchID:     req.BatchID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Frequency:   model.FeePlanFrequency(req.Frequency),
	}, &id.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Fee plan created", plan)
}

// GET /billing/fee-plans
func (h *InvoiceController) ListFeePlans(c *fiber.Ctx) error {
	var plans []model.FeePlanModel
	q := h.DB.WithContext(c.UserContext()).Order("fee_plan_id")
	if v := strings.TrimSpace(c.Query("batch_id")); v != "" {
		bid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid batch_id")
		}
		q = q.Where("fee_plan_batch_id = ?", bid)
	}
	if err := q.Find(&plans).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "list fee plans failed")
	}
	return helper.Success(c, "OK", plans)
}

// POST /billing/fee-plans/generate
func (h *InvoiceController) GenerateDue(c *fiber.Ctx) error {
	var req dto.GenerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
		if err := h.Validator.Struct(req); err != nil {
			return helper.ValidationError(c, err)
		}
	}
	asOf := time.Now()
	if req.AsOf != "" {
		asOf, _ = time.Parse("2006-01-02", req.AsOf)
	}
	n, err := h.FeePlans.GenerateDueInvoices(c.UserContext(), asOf)
	if err != nil {
		log.Printf("[ERROR] generate invoices: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "generate invoices failed")
	}
	return helper.Success(c, "Invoices generated", fiber.Map{"created": n, "as_of": asOf.Format("2006-01-02")})
}
