package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	academicsModel "tuitionhub_backend/internals/features/academics/model"
	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/invoices/model"
)

type AuditRecorder interface {
	Record(ctx context.Context, e auditService.Entry)
}

type FeePlanService struct {
	db    *gorm.DB
	audit AuditRecorder
}

func NewFeePlanService(db *gorm.DB, audit AuditRecorder) *FeePlanService {
	return &FeePlanService{db: db, audit: audit}
}

type CreateFeePlanInput struct {
	BatchID     int64
	AmountCents int64
	Currency    string
	Frequency   model.FeePlanFrequency
}

func (s *FeePlanService) Create(ctx context.Context, in CreateFeePlanInput, actorID *int64) (*model.FeePlanModel, error) {
	freq := model.FeePlanFrequency(strings.ToUpper(strings.TrimSpace(string(in.Frequency))))
	if _, ok := freq.PeriodStart(time.Now()); !ok {
		return nil, fmt.Errorf("unknown frequency %q", in.Frequency)
	}
	cur := strings.ToUpper(strings.TrimSpace(in.Currency))
	if cur == "" {
		cur = model.DefaultCurrency
	}
	plan := model.FeePlanModel{
		FeePlanBatchID:     in.BatchID,
		FeePlanAmountCents: in.AmountCents,
		FeePlanCurrency:    cur,
		FeePlanFrequency:   freq,
		FeePlanIsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, fmt.Errorf("create fee plan: %w", err)
	}
	s.audit.Record(ctx, auditService.Entry{
		ActorID:  actorID,
		Action:   auditService.ActionCreateFeePlan,
		Entity:   "fee_plans",
		EntityID: &plan.FeePlanID,
		After:    plan,
	})
	return &plan, nil
}

// GenerateDueInvoices creates the PENDING invoice of the current period for
// every active enrollment of every active plan. Safe to run repeatedly:
// existing (plan, student, due date) rows are skipped.
func (s *FeePlanService) GenerateDueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	db := s.db.WithContext(ctx)

	var plans []model.FeePlanModel
	if err := db.Where("fee_plan_is_active = ?", true).Order("fee_plan_id").Find(&plans).Error; err != nil {
		return 0, fmt.Errorf("load fee plans: %w", err)
	}

	var created int64
	for _, plan := range plans {
		due, ok := plan.FeePlanFrequency.PeriodStart(asOf)
		if !ok {
			log.Printf("[WARN] fee plan %d has unknown frequency %q, skipping", plan.FeePlanID, plan.FeePlanFrequency)
			continue
		}

		var studentIDs []int64
		if err := db.Model(&academicsModel.EnrollmentModel{}).
			Where("enrollment_batch_id = ? AND enrollment_is_active = ?", plan.FeePlanBatchID, true).
			Where("enrollment_joined_on IS NULL OR enrollment_joined_on <= ?", asOf).
			Order("enrollment_student_id").
			Pluck("enrollment_student_id", &studentIDs).Error; err != nil {
			return created, fmt.Errorf("load enrollments of batch %d: %w", plan.FeePlanBatchID, err)
		}
		if len(studentIDs) == 0 {
			continue
		}

		planID := plan.FeePlanID
		rows := make([]model.InvoiceModel, 0, len(studentIDs))
		for _, sid := range studentIDs {
			rows = append(rows, model.InvoiceModel{
				InvoiceStudentID:   sid,
				InvoiceBatchID:     plan.FeePlanBatchID,
				InvoiceFeePlanID:   &planID,
				InvoiceAmountCents: plan.FeePlanAmountCents,
				InvoiceCurrency:    plan.FeePlanCurrency,
				InvoiceDueOn:       due,
				InvoiceStatus:      model.InvoiceStatusPending,
			})
		}

		res := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "invoice_fee_plan_id"},
				{Name: "invoice_student_id"},
				{Name: "invoice_due_on"},
			},
			DoNothing: true,
		}).CreateInBatches(&rows, 200)
		if res.Error != nil {
			return created, fmt.Errorf("insert invoices for plan %d: %w", plan.FeePlanID, res.Error)
		}
		created += res.RowsAffected

		if res.RowsAffected > 0 {
			s.audit.Record(ctx, auditService.Entry{
				Action:   auditService.ActionGenerateFeeInvoices,
				Entity:   "fee_plans",
				EntityID: &planID,
				After:    map[string]any{"due_on": due.Format("2006-01-02"), "created": res.RowsAffected},
			})
		}
	}
	return created, nil
}

// StartFeePlanCron runs GenerateDueInvoices on schedule.
func StartFeePlanCron(s *FeePlanService, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		n, err := s.GenerateDueInvoices(ctx, time.Now())
		if err != nil {
			log.Printf("[CRON] fee plan invoices: %v", err)
			return
		}
		log.Printf("[CRON] fee plan invoices created=%d", n)
	}); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[CRON] fee plan invoicing scheduled %q", schedule)
	return c, nil
}
