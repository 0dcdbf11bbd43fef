// file: internals/features/audit/model/audit_log_model.go
package model

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLogModel struct {
	AuditLogID        int64          `gorm:"column:audit_log_id;primaryKey;autoIncrement" json:"audit_log_id"`
	AuditLogUserID    *int64         `gorm:"column:audit_log_user_id;index:idx_audit_logs_user" json:"audit_log_user_id,omitempty"` // NULL = system
	AuditLogAction    string         `gorm:"column:audit_log_action;type:varchar(255);not null;index:idx_audit_logs_action" json:"audit_log_action"`
	AuditLogEntity    *string        `gorm:"column:audit_log_entity;type:varchar(100)" json:"audit_log_entity,omitempty"`
	AuditLogEntityID  *int64         `gorm:"column:audit_log_entity_id" json:"audit_log_entity_id,omitempty"`
	AuditLogBefore    datatypes.JSON `gorm:"column:audit_log_before" json:"audit_log_before,omitempty"`
	AuditLogAfter     datatypes.JSON `gorm:"column:audit_log_after" json:"audit_log_after,omitempty"`
	AuditLogCreatedAt time.Time      `gorm:"column:audit_log_created_at;autoCreateTime" json:"audit_log_created_at"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }
