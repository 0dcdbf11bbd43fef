package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/gateway"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	"tuitionhub_backend/internals/features/billing/payments/model"
)

type WebhookInput struct {
	RawBody     []byte
	Signature   string
	EventIDHint string
}

type WebhookResult struct {
	EventID   string
	Kind      gateway.EventKind
	Duplicate bool
}

// IngestWebhook validates, records and processes one gateway notification.
// A redelivered event that was already processed is acknowledged untouched;
// one that failed before is processed again. Any returned error other than
// ErrInvalidSignature/ErrMalformedEvent means "redeliver".
func (r *Reconciler) IngestWebhook(ctx context.Context, in WebhookInput) (*WebhookResult, error) {
	if len(in.RawBody) == 0 || !r.gw.VerifyWebhook(in.RawBody, in.Signature) {
		return nil, ErrInvalidSignature
	}
	ev, err := r.gw.ParseEvent(in.RawBody, in.EventIDHint)
	if err != nil {
		return nil, err
	}
	out := &WebhookResult{EventID: ev.ID, Kind: ev.Kind}

	row, fresh, err := r.recordEvent(ctx, ev, in.RawBody)
	if err != nil {
		return nil, err
	}
	if !fresh {
		if row.WebhookEventProcessed {
			log.Printf("[WEBHOOK] %s %s already processed, skipping", row.WebhookEventProvider, ev.ID)
			out.Duplicate = true
			return out, nil
		}
		log.Printf("[WEBHOOK] %s %s redelivered, retry #%d", row.WebhookEventProvider, ev.ID, row.WebhookEventTryCount)
	}

	if perr := r.processEvent(ctx, ev); perr != nil {
		r.markEvent(ctx, row.WebhookEventID, false, perr)
		log.Printf("[WEBHOOK] %s %s failed: %v", row.WebhookEventProvider, ev.ID, perr)
		return nil, fmt.Errorf("process event %s: %w", ev.ID, perr)
	}
	r.markEvent(ctx, row.WebhookEventID, true, nil)
	return out, nil
}

// recordEvent inserts the event row or, on a duplicate key, bumps the try
// count of the existing one. fresh reports a first delivery.
func (r *Reconciler) recordEvent(ctx context.Context, ev *gateway.Event, body []byte) (*model.WebhookEventModel, bool, error) {
	db := r.db.WithContext(ctx)
	provider := r.gw.Name()

	row := model.WebhookEventModel{
		WebhookEventProvider: provider,
		WebhookEventType:     ev.RawType,
		WebhookEventEventID:  ev.ID,
		WebhookEventOrderRef: strPtr(ev.OrderRef),
		WebhookEventPayload:  datatypes.JSON(body),
		WebhookEventStatus:   model.WebhookEventStatusProcessing,
		WebhookEventTryCount: 1,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "webhook_event_provider"}, {Name: "webhook_event_event_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, false, fmt.Errorf("%w: insert webhook event: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 1 {
		return &row, true, nil
	}

	var existing model.WebhookEventModel
	if err := db.Where("webhook_event_provider = ? AND webhook_event_event_id = ?", provider, ev.ID).
		Take(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("%w: load webhook event: %v", ErrPersistence, err)
	}
	if existing.WebhookEventProcessed {
		return &existing, false, nil
	}
	if err := db.Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ?", existing.WebhookEventID).
		Updates(map[string]any{
			"webhook_event_try_count":  gorm.Expr("webhook_event_try_count + 1"),
			"webhook_event_status":     model.WebhookEventStatusProcessing,
			"webhook_event_updated_at": r.now().UTC(),
		}).Error; err != nil {
		return nil, false, fmt.Errorf("%w: bump webhook event: %v", ErrPersistence, err)
	}
	existing.WebhookEventTryCount++
	return &existing, false, nil
}

func (r *Reconciler) processEvent(ctx context.Context, ev *gateway.Event) error {
	switch {
	case ev.Kind.IsCapture():
		if ev.OrderRef == "" {
			log.Printf("[WEBHOOK] %s %s without order ref, ignoring", ev.Kind, ev.ID)
			return nil
		}
		_, err := r.settle(ctx, ev.OrderRef, ev.PaymentRef, nil, auditService.ActionWebhookPaymentSuccess)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			// redelivery cannot bind it to an invoice either
			log.Printf("[WEBHOOK] order %s not found, acknowledging", ev.OrderRef)
			return nil
		case errors.Is(err, ErrInvoiceClosed):
			return nil
		}
		return err

	case ev.Kind == gateway.EventPaymentFailed:
		return r.markFailed(ctx, ev)
	}

	log.Printf("[WEBHOOK] unhandled event type %q (%s)", ev.RawType, ev.ID)
	return nil
}

// markFailed moves a PENDING invoice to FAILED. Any other status is left alone.
func (r *Reconciler) markFailed(ctx context.Context, ev *gateway.Event) error {
	if ev.OrderRef == "" {
		return nil
	}
	db := r.db.WithContext(ctx)

	var inv invoiceModel.InvoiceModel
	if err := db.Where("invoice_order_ref = ?", ev.OrderRef).Take(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WEBHOOK] order %s not found, acknowledging", ev.OrderRef)
			return nil
		}
		return fmt.Errorf("%w: load invoice: %v", ErrPersistence, err)
	}

	res := db.Model(&invoiceModel.InvoiceModel{}).
		Where("invoice_id = ? AND invoice_status = ?", inv.InvoiceID, invoiceModel.InvoiceStatusPending).
		Updates(map[string]any{
			"invoice_status":     invoiceModel.InvoiceStatusFailed,
			"invoice_updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("%w: mark failed: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	r.audit.Record(ctx, auditService.Entry{
		Action:   auditService.ActionWebhookPaymentFailed,
		Entity:   "invoices",
		EntityID: &inv.InvoiceID,
		Before:   map[string]any{"status": invoiceModel.InvoiceStatusPending},
		After:    map[string]any{"status": invoiceModel.InvoiceStatusFailed, "provider_payment_id": ev.PaymentRef},
	})
	return nil
}

func (r *Reconciler) markEvent(ctx context.Context, id int64, ok bool, perr error) {
	now := r.now().UTC()
	upd := map[string]any{"webhook_event_updated_at": now}
	if ok {
		upd["webhook_event_processed"] = true
		upd["webhook_event_status"] = model.WebhookEventStatusProcessed
		upd["webhook_event_processed_at"] = now
		upd["webhook_event_error"] = nil
	} else {
		upd["webhook_event_status"] = model.WebhookEventStatusFailed
		upd["webhook_event_error"] = perr.Error()
	}
	// detached: the request may already be cancelled
	if err := r.db.WithContext(context.WithoutCancel(ctx)).
		Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ?", id).
		Updates(upd).Error; err != nil {
		log.Printf("[WEBHOOK] update event row %d: %v", id, err)
	}
}
