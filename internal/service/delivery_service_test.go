package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/service"
)

func newDeliveryFixture(t *testing.T) (*service.DeliveryService, *MemDeliveryRepo, *MemCustomerRepo) {
	t.Helper()
	deliveries := NewMemDeliveryRepo()
	customers := NewMemCustomerRepo(model.Customer{ID: 10, PrimaryEmail: "a@example.com"})
	svc := &service.DeliveryService{
		DeliveryRepo: deliveries,
		CustomerRepo: customers,
		Log:          zap.NewNop(),
	}
	return svc, deliveries, customers
}

func pendingAttempt(t *testing.T, deliveries *MemDeliveryRepo, attemptID string) {
	t.Helper()
	require.NoError(t, deliveries.Create(&model.DeliveryReport{
		AttemptID:  attemptID,
		CampaignID: 1,
		CustomerID: 10,
		Status:     model.StatusPending,
	}))
}

func TestApplyStatusSent(t *testing.T) {
	svc, deliveries, _ := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")

	require.NoError(t, svc.ApplyStatus("attempt-1", "sent"))

	report, err := deliveries.GetByAttemptID("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, report.Status)
}

func TestApplyStatusIsMonotonic(t *testing.T) {
	svc, deliveries, _ := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")

	require.NoError(t, svc.ApplyStatus("attempt-1", "sent"))

	// repeating the same terminal status is an accepted no-op
	require.NoError(t, svc.ApplyStatus("attempt-1", "sent"))

	// a conflicting terminal report is dropped without mutating the entry
	require.NoError(t, svc.ApplyStatus("attempt-1", "failed"))

	report, err := deliveries.GetByAttemptID("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, report.Status)
}

func TestApplyStatusUnknownAttempt(t *testing.T) {
	svc, deliveries, _ := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")
	before := deliveries.Snapshot()

	err := svc.ApplyStatus("no-such-attempt", "sent")
	require.Error(t, err)

	var unknown *appErrors.ErrUnknownDeliveryAttempt
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, before, deliveries.Snapshot(), "ledger must be untouched")
}

func TestApplyStatusRejectsInvalidValue(t *testing.T) {
	svc, deliveries, _ := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")
	before := deliveries.Snapshot()

	err := svc.ApplyStatus("attempt-1", "delivered-ish")
	assert.ErrorIs(t, err, appErrors.ErrInvalidDeliveryStatus)
	assert.Equal(t, before, deliveries.Snapshot())
}

func TestBounceFlagsCustomerDoNotDisturb(t *testing.T) {
	svc, deliveries, customers := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")

	require.NoError(t, svc.ApplyStatus("attempt-1", "bounce"))

	report, err := deliveries.GetByAttemptID("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, report.Status, "bounce folds into failed")
	assert.Equal(t, model.DoNotDisturbYes, customers.dndSet[10])
}

func TestComplaintFlagsCustomerDoNotDisturb(t *testing.T) {
	svc, deliveries, customers := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")

	require.NoError(t, svc.ApplyStatus("attempt-1", "complaint"))
	assert.Equal(t, model.DoNotDisturbYes, customers.dndSet[10])
}

func TestApplyFailureRecordsError(t *testing.T) {
	svc, deliveries, customers := newDeliveryFixture(t)
	pendingAttempt(t, deliveries, "attempt-1")

	require.NoError(t, svc.ApplyFailure("attempt-1", "smtp timeout"))

	report, err := deliveries.GetByAttemptID("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, report.Status)
	assert.Equal(t, "smtp timeout", report.LastError)

	// an ordinary failure does not flag the customer
	_, flagged := customers.dndSet[10]
	assert.False(t, flagged)
}
