package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuitionhub_backend/internals/databases/dbtest"
	"tuitionhub_backend/internals/features/audit/model"
	"tuitionhub_backend/internals/helpers/worker"
)

func TestRecordWritesAsync(t *testing.T) {
	db := dbtest.Open(t)
	pool := worker.New(2, time.Second)
	rec := NewRecorder(db, pool)

	invoiceID := int64(42)
	rec.Record(context.Background(), Entry{
		Action:   ActionVerifyOnlinePayment,
		Entity:   "invoices",
		EntityID: &invoiceID,
		After:    map[string]any{"status": "PAID"},
	})
	pool.Wait()

	var rows []model.AuditLogModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, ActionVerifyOnlinePayment, rows[0].AuditLogAction)
	assert.Nil(t, rows[0].AuditLogUserID)
	require.NotNil(t, rows[0].AuditLogEntity)
	assert.Equal(t, "invoices", *rows[0].AuditLogEntity)
	assert.JSONEq(t, `{"status":"PAID"}`, string(rows[0].AuditLogAfter))
	assert.Empty(t, rows[0].AuditLogBefore)
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Migrator().DropTable(&model.AuditLogModel{}))

	pool := worker.New(1, time.Second)
	rec := NewRecorder(db, pool)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: ActionCancelInvoice})
		pool.Wait()
	})
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() { rec.Record(context.Background(), Entry{Action: "x"}) })
}
