package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "tuitionhub_backend/internals/databases"
	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/gateway"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
	"tuitionhub_backend/internals/features/billing/payments/model"
)

func signed(body string) WebhookInput {
	return WebhookInput{RawBody: []byte(body), Signature: gateway.Sign([]byte(body), webhookSecret)}
}

func (f *fixture) events(t *testing.T) []model.WebhookEventModel {
	t.Helper()
	var evs []model.WebhookEventModel
	require.NoError(t, f.db.Order("webhook_event_id").Find(&evs).Error)
	return evs
}

const failedEvt1 = `{"id":"evt_1","event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_f","order_id":"order_def","amount":7000}}}}`

func TestWebhookPaymentFailedAndReplay(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 7, 10, 7000, invoiceModel.InvoiceStatusPending, "order_def")

	res, err := f.r.IngestWebhook(context.Background(), signed(failedEvt1))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, gateway.EventPaymentFailed, res.Kind)
	assert.Equal(t, invoiceModel.InvoiceStatusFailed, f.invoice(t, 7).InvoiceStatus)

	res, err = f.r.IngestWebhook(context.Background(), signed(failedEvt1))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, invoiceModel.InvoiceStatusFailed, f.invoice(t, 7).InvoiceStatus)

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.True(t, evs[0].WebhookEventProcessed)
	assert.Equal(t, model.WebhookEventStatusProcessed, evs[0].WebhookEventStatus)
	assert.Equal(t, "evt_1", evs[0].WebhookEventEventID)
	assert.Equal(t, "razorpay", evs[0].WebhookEventProvider)
	assert.JSONEq(t, failedEvt1, string(evs[0].WebhookEventPayload))
	assert.Contains(t, f.audit.actions(), auditService.ActionWebhookPaymentFailed)
}

func TestWebhookFailedDoesNotTouchPaidInvoice(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 7, 10, 7000, invoiceModel.InvoiceStatusPaid, "order_def")

	_, err := f.r.IngestWebhook(context.Background(), signed(failedEvt1))
	require.NoError(t, err)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, f.invoice(t, 7).InvoiceStatus)
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 7, 10, 7000, invoiceModel.InvoiceStatusPending, "order_def")

	in := signed(failedEvt1)
	in.Signature = gateway.Sign(in.RawBody, keySecret)
	_, err := f.r.IngestWebhook(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.r.IngestWebhook(context.Background(), WebhookInput{})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	assert.Empty(t, f.events(t))
	assert.Equal(t, invoiceModel.InvoiceStatusPending, f.invoice(t, 7).InvoiceStatus)
}

func TestWebhookMalformedBody(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.IngestWebhook(context.Background(), signed(`{"payload":`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.Empty(t, f.events(t))
}

func TestWebhookCaptureSettlesOnce(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 42, 10, 50000, invoiceModel.InvoiceStatusPending, "order_abc")

	_, err := f.r.VerifyPayment(context.Background(), VerifyInput{
		OrderRef: "order_abc", PaymentRef: "pay_xyz", Signature: checkoutSig("order_abc", "pay_xyz"),
	})
	require.NoError(t, err)

	_, err = f.r.IngestWebhook(context.Background(), signed(
		`{"id":"evt_2","event":"order.paid","payload":{"payment":{"entity":{"id":"pay_xyz","order_id":"order_abc","amount":50000}}}}`))
	require.NoError(t, err)

	assert.Len(t, f.payments(t, 42), 1)
	assert.Len(t, f.receipts.issued(), 1)
	assert.True(t, f.events(t)[0].WebhookEventProcessed)
}

func TestWebhookCaptureSettlesPendingInvoice(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 42, 10, 50000, invoiceModel.InvoiceStatusPending, "order_abc")

	_, err := f.r.IngestWebhook(context.Background(), signed(
		`{"id":"evt_3","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_w","order_id":"order_abc","amount":50000}}}}`))
	require.NoError(t, err)

	assert.Equal(t, invoiceModel.InvoiceStatusPaid, f.invoice(t, 42).InvoiceStatus)
	ps := f.payments(t, 42)
	require.Len(t, ps, 1)
	assert.Nil(t, ps[0].PaymentCreatedBy)
	assert.Contains(t, f.audit.actions(), auditService.ActionWebhookPaymentSuccess)
}

func TestWebhookUnknownOrderIsAcknowledged(t *testing.T) {
	f := newFixture(t)

	_, err := f.r.IngestWebhook(context.Background(), signed(
		`{"id":"evt_4","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_q","order_id":"order_ghost"}}}}`))
	require.NoError(t, err)

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.True(t, evs[0].WebhookEventProcessed)
}

func TestWebhookUnknownKindIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 42, 10, 50000, invoiceModel.InvoiceStatusPending, "order_abc")

	res, err := f.r.IngestWebhook(context.Background(), signed(
		`{"id":"evt_5","event":"refund.created","payload":{"payment":{"entity":{"id":"pay_r","order_id":"order_abc"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, gateway.EventUnknown, res.Kind)
	assert.Equal(t, invoiceModel.InvoiceStatusPending, f.invoice(t, 42).InvoiceStatus)
	assert.True(t, f.events(t)[0].WebhookEventProcessed)
}

func TestWebhookReprocessesUnprocessedEvent(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 42, 10, 50000, invoiceModel.InvoiceStatusPending, "order_abc")
	body := `{"id":"evt_6","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_6","order_id":"order_abc"}}}}`

	// a previous attempt recorded the event and then died
	errText := "connection reset"
	require.NoError(t, f.db.Create(&model.WebhookEventModel{
		WebhookEventProvider: "razorpay",
		WebhookEventType:     "payment.captured",
		WebhookEventEventID:  "evt_6",
		WebhookEventPayload:  []byte(body),
		WebhookEventStatus:   model.WebhookEventStatusFailed,
		WebhookEventTryCount: 1,
		WebhookEventError:    &errText,
	}).Error)

	res, err := f.r.IngestWebhook(context.Background(), signed(body))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	assert.Equal(t, invoiceModel.InvoiceStatusPaid, f.invoice(t, 42).InvoiceStatus)
	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.True(t, evs[0].WebhookEventProcessed)
	assert.Equal(t, 2, evs[0].WebhookEventTryCount)
	assert.Nil(t, evs[0].WebhookEventError)
}

func TestWebhookProcessingFailureKeepsEventUnprocessed(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, 42, 10, 50000, invoiceModel.InvoiceStatusPending, "order_abc")
	body := `{"id":"evt_7","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_7","order_id":"order_abc"}}}}`

	require.NoError(t, f.db.Migrator().DropTable(&model.PaymentModel{}))

	_, err := f.r.IngestWebhook(context.Background(), signed(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.False(t, evs[0].WebhookEventProcessed)
	assert.Equal(t, model.WebhookEventStatusFailed, evs[0].WebhookEventStatus)
	require.NotNil(t, evs[0].WebhookEventError)
	assert.Equal(t, invoiceModel.InvoiceStatusPending, f.invoice(t, 42).InvoiceStatus)

	// schema restored, gateway redelivers
	require.NoError(t, database.Migrate(f.db))
	_, err = f.r.IngestWebhook(context.Background(), signed(body))
	require.NoError(t, err)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, f.invoice(t, 42).InvoiceStatus)
	assert.True(t, f.events(t)[0].WebhookEventProcessed)
}

func TestWebhookEventIDFromHeader(t *testing.T) {
	f := newFixture(t)
	body := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_h","order_id":"order_none"}}}}`
	in := signed(body)
	in.EventIDHint = "hdr_evt_9"

	res, err := f.r.IngestWebhook(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "hdr_evt_9", res.EventID)

	res, err = f.r.IngestWebhook(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
}
