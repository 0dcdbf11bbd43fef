package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/gorm"

	database "tuitionhub_backend/internals/databases"
	academicsModel "tuitionhub_backend/internals/features/academics/model"
	paymentModel "tuitionhub_backend/internals/features/billing/payments/model"
	"tuitionhub_backend/internals/features/billing/receipts/model"
	"tuitionhub_backend/internals/helpers/storage"
	"tuitionhub_backend/internals/helpers/worker"
)

var (
	ErrDuplicateReceiptNumber = errors.New("receipt number already used by another payment")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentNotSuccessful   = errors.New("receipts are issued for successful payments only")
	ErrReceiptNotFound        = errors.New("receipt not found")
)

type Dispatcher interface {
	Submit(name string, job worker.Job)
}

type Generator struct {
	db    *gorm.DB
	store storage.BlobStore
	pool  Dispatcher
	now   func() time.Time
}

func NewGenerator(db *gorm.DB, store storage.BlobStore, pool Dispatcher) *Generator {
	return &Generator{db: db, store: store, pool: pool, now: time.Now}
}

// IssueAsync generates the receipt off the request path. Errors are logged.
func (g *Generator) IssueAsync(paymentID int64) {
	g.pool.Submit(fmt.Sprintf("receipt:%d", paymentID), func(ctx context.Context) error {
		if _, err := g.Generate(ctx, paymentID); err != nil {
			if errors.Is(err, ErrDuplicateReceiptNumber) {
				log.Printf("[RECEIPT] payment=%d duplicate receipt number, needs manual fix", paymentID)
				return nil
			}
			return fmt.Errorf("payment %d: %w", paymentID, err)
		}
		return nil
	})
}

// Generate is idempotent per payment: an existing receipt is returned as is.
func (g *Generator) Generate(ctx context.Context, paymentID int64) (*model.ReceiptModel, error) {
	db := g.db.WithContext(ctx)

	if r, err := g.byPayment(db, paymentID); err == nil {
		return r, nil
	} else if !errors.Is(err, ErrReceiptNotFound) {
		return nil, err
	}

	doc, err := g.loadDocument(db, paymentID)
	if err != nil {
		return nil, err
	}

	// a number held by another payment is fatal; nothing is written
	var taken int64
	if err := db.Model(&model.ReceiptModel{}).
		Where("receipt_no = ? AND receipt_payment_id <> ?", doc.ReceiptNo, paymentID).
		Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check receipt number: %w", err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateReceiptNumber, doc.ReceiptNo)
	}

	handle, err := g.writeDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	row := model.ReceiptModel{
		ReceiptPaymentID:    paymentID,
		ReceiptNo:           doc.ReceiptNo,
		ReceiptDocumentPath: handle,
		ReceiptGeneratedAt:  g.now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// a concurrent run for the same payment won; anything else is a real collision
			if r, e := g.byPayment(db, paymentID); e == nil {
				return r, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrDuplicateReceiptNumber, doc.ReceiptNo)
		}
		return nil, fmt.Errorf("insert receipt: %w", err)
	}

	log.Printf("[RECEIPT] issued %s for payment=%d", row.ReceiptNo, paymentID)
	return &row, nil
}

// Regenerate re-renders the document of an existing receipt under the same
// handle, or generates a first one.
func (g *Generator) Regenerate(ctx context.Context, paymentID int64) (*model.ReceiptModel, error) {
	db := g.db.WithContext(ctx)

	r, err := g.byPayment(db, paymentID)
	if errors.Is(err, ErrReceiptNotFound) {
		return g.Generate(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}

	doc, err := g.loadDocument(db, paymentID)
	if err != nil {
		return nil, err
	}
	doc.ReceiptNo = r.ReceiptNo
	doc.IssuedAt = r.ReceiptGeneratedAt

	pdf, err := RenderPDF(doc)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.Put(ctx, r.ReceiptDocumentPath, pdf, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	return r, nil
}

// Open returns the receipt and its document. studentID scopes the lookup to
// one student's payments; nil means unrestricted.
func (g *Generator) Open(ctx context.Context, paymentID int64, studentID *int64) (*model.ReceiptModel, io.ReadCloser, error) {
	db := g.db.WithContext(ctx)

	var p paymentModel.PaymentModel
	q := db.Where("payment_id = ?", paymentID)
	if studentID != nil {
		q = q.Where("payment_student_id = ?", *studentID)
	}
	if err := q.Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrReceiptNotFound
		}
		return nil, nil, err
	}

	r, err := g.byPayment(db, paymentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := g.store.Open(ctx, r.ReceiptDocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrReceiptNotFound
		}
		return nil, nil, fmt.Errorf("open receipt: %w", err)
	}
	return r, rc, nil
}

// MissingSince lists SUCCESS payments created before cutoff with no receipt.
func (g *Generator) MissingSince(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := g.db.WithContext(ctx).
		Model(&paymentModel.PaymentModel{}).
		Joins("LEFT JOIN receipts ON receipts.receipt_payment_id = payments.payment_id").
		Where("payments.payment_status = ? AND receipts.receipt_id IS NULL AND payments.payment_created_at < ?",
			paymentModel.PaymentStatusSuccess, cutoff).
		Order("payments.payment_id").
		Limit(limit).
		Pluck("payments.payment_id", &ids).Error
	return ids, err
}

// Sweep generates receipts missed by the async path. Returns how many were issued.
func (g *Generator) Sweep(ctx context.Context, grace time.Duration, limit int) (int, error) {
	ids, err := g.MissingSince(ctx, g.now().Add(-grace), limit)
	if err != nil {
		return 0, fmt.Errorf("list missing receipts: %w", err)
	}
	issued := 0
	for _, id := range ids {
		if _, err := g.Generate(ctx, id); err != nil {
			log.Printf("[RECEIPT] sweep payment=%d: %v", id, err)
			continue
		}
		issued++
	}
	return issued, nil
}

func (g *Generator) byPayment(db *gorm.DB, paymentID int64) (*model.ReceiptModel, error) {
	var r model.ReceiptModel
	if err := db.Where("receipt_payment_id = ?", paymentID).Take(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("load receipt: %w", err)
	}
	return &r, nil
}

func (g *Generator) loadDocument(db *gorm.DB, paymentID int64) (*Document, error) {
	var p paymentModel.PaymentModel
	if err := db.Where("payment_id = ?", paymentID).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if p.PaymentStatus != paymentModel.PaymentStatusSuccess {
		return nil, ErrPaymentNotSuccessful
	}

	paidOn := p.PaymentCreatedAt
	if p.PaymentPaidOn != nil {
		paidOn = *p.PaymentPaidOn
	}
	doc := &Document{
		ReceiptNo:   model.ReceiptNumber(paidOn.Year(), p.PaymentID),
		IssuedAt:    g.now().UTC(),
		PaidOn:      paidOn,
		PaymentID:   p.PaymentID,
		InvoiceID:   p.PaymentInvoiceID,
		AmountCents: p.PaymentAmountCents,
		Currency:    p.PaymentCurrency,
		Mode:        string(p.PaymentMode),
		Reference:   deref(p.PaymentReferenceNo),
	}
	if p.PaymentProviderPaymentID != nil {
		doc.Reference = *p.PaymentProviderPaymentID
	}

	// payer identity is best effort; a receipt without a name beats no receipt
	var payer struct {
		UserName  string
		UserEmail string
	}
	if err := db.Table("students").
		Select("users.user_name, users.user_email").
		Joins("JOIN users ON users.user_id = students.student_user_id").
		Where("students.student_id = ?", p.PaymentStudentID).
		Take(&payer).Error; err == nil {
		doc.PayerName = payer.UserName
		doc.PayerEmail = payer.UserEmail
	}
	var batch academicsModel.BatchModel
	if err := db.Where("batch_id = ?", p.PaymentBatchID).Take(&batch).Error; err == nil {
		doc.BatchName = batch.BatchName
	}
	return doc, nil
}

func (g *Generator) writeDocument(ctx context.Context, doc *Document) (string, error) {
	pdf, err := RenderPDF(doc)
	if err != nil {
		return "", err
	}
	// keyed by payment so two receipts can never share a blob
	key := fmt.Sprintf("receipts/%d/payment-%d.pdf", doc.PaidOn.Year(), doc.PaymentID)
	handle, err := g.store.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	return handle, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
