package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/receipts/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/authctx"
)

type AuditRecorder interface {
	Record(ctx context.Context, e auditService.Entry)
}

type ReceiptController struct {
	Generator *service.Generator
	Audit     AuditRecorder
}

func NewReceiptController(g *service.Generator, audit AuditRecorder) *ReceiptController {
	return &ReceiptController{Generator: g, Audit: audit}
}

func paymentIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("payment_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid payment_id")
	}
	return id, nil
}

// GET /billing/receipts/:payment_id/download
func (h *ReceiptController) Download(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	paymentID, err := paymentIDParam(c)
	if err != nil {
		return err
	}

	var scope *int64
	if !id.IsTeacher() {
		scope = id.StudentID
		if scope == nil {
			return fiber.NewError(fiber.StatusForbidden, "Forbidden")
		}
	}

	r, rc, err := h.Generator.Open(c.UserContext(), paymentID, scope)
	if err != nil {
		if errors.Is(err, service.ErrReceiptNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "receipt not found")
		}
		log.Printf("[ERROR] open receipt payment=%d: %v", paymentID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "open receipt failed")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, r.ReceiptNo))
	// fasthttp closes rc once the body is written
	return c.SendStream(rc)
}

// POST /billing/receipts/:payment_id/regenerate
func (h *ReceiptController) Regenerate(c *fiber.Ctx) error {
	id, err := authctx.FromCtx(c)
	if err != nil {
		return err
	}
	paymentID, err := paymentIDParam(c)
	if err != nil {
		return err
	}

	r, err := h.Generator.Regenerate(c.UserContext(), paymentID)
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return fiber.NewError(fiber.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrPaymentNotSuccessful):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrDuplicateReceiptNumber):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		log.Printf("[ERROR] regenerate receipt payment=%d: %v", paymentID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "regenerate receipt failed")
	}

	if h.Audit != nil {
		h.Audit.Record(c.UserContext(), auditService.Entry{
			ActorID:  &id.UserID,
			Action:   auditService.ActionRegenerateReceipt,
			Entity:   "receipts",
			EntityID: &r.ReceiptID,
			After:    r,
		})
	}
	return helper.Success(c, "Receipt regenerated", r)
}
