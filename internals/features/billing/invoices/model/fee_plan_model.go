// file: internals/features/billing/invoices/model/fee_plan_model.go
package model

import "time"

type FeePlanFrequency string

const (
	FeePlanMonthly   FeePlanFrequency = "MONTHLY"
	FeePlanQuarterly FeePlanFrequency = "QUARTERLY"
	FeePlanYearly    FeePlanFrequency = "YEARLY"
)

// PeriodStart returns the due date of the period containing t (UTC midnight).
func (f FeePlanFrequency) PeriodStart(t time.Time) (time.Time, bool) {
	t = t.UTC()
	switch f {
	case FeePlanMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case FeePlanQuarterly:
		m := ((int(t.Month())-1)/3)*3 + 1
		return time.Date(t.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
	case FeePlanYearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

type FeePlanModel struct {
	FeePlanID          int64            `gorm:"column:fee_plan_id;primaryKey;autoIncrement" json:"fee_plan_id"`
	FeePlanBatchID     int64            `gorm:"column:fee_plan_batch_id;not null;index:idx_fee_plans_batch" json:"fee_plan_batch_id"`
	FeePlanAmountCents int64            `gorm:"column:fee_plan_amount_cents;not null;check:fee_plan_amount_cents >= 0" json:"fee_plan_amount_cents"`
	FeePlanCurrency    string           `gorm:"column:fee_plan_currency;type:varchar(3);not null" json:"fee_plan_currency"`
	FeePlanFrequency   FeePlanFrequency `gorm:"column:fee_plan_frequency;type:varchar(16);not null" json:"fee_plan_frequency"`
	FeePlanIsActive    bool             `gorm:"column:fee_plan_is_active;not null" json:"fee_plan_is_active"`
	FeePlanCreatedAt   time.Time        `gorm:"column:fee_plan_created_at;autoCreateTime" json:"fee_plan_created_at"`
}

func (FeePlanModel) TableName() string { return "fee_plans" }
