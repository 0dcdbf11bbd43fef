// file: internals/features/billing/payments/model/webhook_event_model.go
package model

import (
	"time"

	"gorm.io/datatypes"
)

/*
  webhook_events = inbound gateway notifications, one row per (provider, event id).
  - inserted after signature validation, before business processing
  - processed=true only after processing finished without error
  - a row with processed=false is reprocessed on redelivery
*/
type WebhookEventModel struct {
	WebhookEventID       int64   `gorm:"column:webhook_event_id;primaryKey;autoIncrement" json:"webhook_event_id"`
	WebhookEventProvider string  `gorm:"column:webhook_event_provider;type:varchar(20);not null;uniqueIndex:uq_webhook_events_provider_event,priority:1" json:"webhook_event_provider"`
	WebhookEventType     string  `gorm:"column:webhook_event_type;type:varchar(64);not null" json:"webhook_event_type"`
	WebhookEventEventID  string  `gorm:"column:webhook_event_event_id;type:varchar(191);not null;uniqueIndex:uq_webhook_events_provider_event,priority:2" json:"webhook_event_event_id"`
	WebhookEventOrderRef *string `gorm:"column:webhook_event_order_ref;type:varchar(64);index:idx_webhook_events_order" json:"webhook_event_order_ref,omitempty"`

	// Raw body as received (buat debug / replay)
	WebhookEventPayload datatypes.JSON `gorm:"column:webhook_event_payload;not null" json:"webhook_event_payload"`

	WebhookEventProcessed   bool               `gorm:"column:webhook_event_processed;not null" json:"webhook_event_processed"`
	WebhookEventStatus      WebhookEventStatus `gorm:"column:webhook_event_status;type:varchar(16);not null" json:"webhook_event_status"`
	WebhookEventTryCount    int                `gorm:"column:webhook_event_try_count;not null" json:"webhook_event_try_count"`
	WebhookEventError       *string            `gorm:"column:webhook_event_error;type:text" json:"webhook_event_error,omitempty"`
	WebhookEventProcessedAt *time.Time         `gorm:"column:webhook_event_processed_at" json:"webhook_event_processed_at,omitempty"`

	WebhookEventCreatedAt time.Time `gorm:"column:webhook_event_created_at;autoCreateTime" json:"webhook_event_created_at"`
	WebhookEventUpdatedAt time.Time `gorm:"column:webhook_event_updated_at;autoUpdateTime" json:"webhook_event_updated_at"`
}

func (WebhookEventModel) TableName() string { return "webhook_events" }
