// file: internals/features/billing/receipts/model/receipt_model.go
package model

import (
	"fmt"
	"time"
)

// one receipt per SUCCESS payment; immutable once inserted
type ReceiptModel struct {
	ReceiptID           int64     `gorm:"column:receipt_id;primaryKey;autoIncrement" json:"receipt_id"`
	ReceiptPaymentID    int64     `gorm:"column:receipt_payment_id;not null;uniqueIndex:uq_receipts_payment" json:"receipt_payment_id"`
	ReceiptNo           string    `gorm:"column:receipt_no;type:varchar(64);not null;uniqueIndex:uq_receipts_no" json:"receipt_no"`
	ReceiptDocumentPath string    `gorm:"column:receipt_document_path;type:varchar(255);not null" json:"receipt_document_path"`
	ReceiptGeneratedAt  time.Time `gorm:"column:receipt_generated_at;autoCreateTime" json:"receipt_generated_at"`
}

func (ReceiptModel) TableName() string { return "receipts" }

// ReceiptNumber: RCPT-<year>-<payment id>
func ReceiptNumber(year int, paymentID int64) string {
	return fmt.Sprintf("RCPT-%d-%d", year, paymentID)
}
