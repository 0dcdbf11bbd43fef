package service

import (
	"context"
	"fmt"
	"log"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tuitionhub_backend/internals/features/audit/model"
	"tuitionhub_backend/internals/helpers/worker"
)

// Actions written by the billing flows.
const (
	ActionVerifyOnlinePayment   = "VERIFY_ONLINE_PAYMENT"
	ActionWebhookPaymentSuccess = "WEBHOOK_PAYMENT_SUCCESS"
	ActionWebhookPaymentFailed  = "WEBHOOK_PAYMENT_FAILED"
	ActionCreateManualPayment   = "CREATE_MANUAL_PAYMENT"
	ActionCreateInvoice         = "CREATE_INVOICE"
	ActionCancelInvoice         = "CANCEL_INVOICE"
	ActionCreateOrder           = "CREATE_PAYMENT_ORDER"
	ActionPaymentOnClosed       = "PAYMENT_ON_CLOSED_INVOICE"
	ActionRegenerateReceipt     = "REGENERATE_RECEIPT"
	ActionGenerateFeeInvoices   = "GENERATE_FEE_INVOICES"
	ActionCreateFeePlan         = "CREATE_FEE_PLAN"
)

// Entry is one audit line. A nil ActorID means the system (webhook, cron).
type Entry struct {
	ActorID  *int64
	Action   string
	Entity   string
	EntityID *int64
	Before   any
	After    any
}

type Dispatcher interface {
	Submit(name string, job worker.Job)
}

type Recorder struct {
	db   *gorm.DB
	pool Dispatcher
}

func NewRecorder(db *gorm.DB, pool Dispatcher) *Recorder {
	return &Recorder{db: db, pool: pool}
}

// Record queues the entry and returns immediately. Failures are only logged.
func (r *Recorder) Record(_ context.Context, e Entry) {
	if r == nil {
		return
	}
	r.pool.Submit("audit:"+e.Action, func(ctx context.Context) error {
		if err := r.Write(ctx, e); err != nil {
			log.Printf("[AUDIT] %s failed: %v", e.Action, err)
		}
		return nil
	})
}

// Write persists the entry synchronously.
func (r *Recorder) Write(ctx context.Context, e Entry) error {
	row := model.AuditLogModel{
		AuditLogUserID:   e.ActorID,
		AuditLogAction:   e.Action,
		AuditLogEntityID: e.EntityID,
	}
	if e.Entity != "" {
		entity := e.Entity
		row.AuditLogEntity = &entity
	}
	var err error
	if row.AuditLogBefore, err = toJSON(e.Before); err != nil {
		return fmt.Errorf("encode before: %w", err)
	}
	if row.AuditLogAfter, err = toJSON(e.After); err != nil {
		return fmt.Errorf("encode after: %w", err)
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
