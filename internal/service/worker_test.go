package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/queue"
	"github.com/molevo/broadcast-backend/internal/service"
)

type sendCall struct {
	method  string
	address string
	content string
}

func newWorkerFixture(send service.SendFunc) (*service.SendWorker, *MemDeliveryRepo) {
	deliveries := NewMemDeliveryRepo()
	delivery := &service.DeliveryService{
		DeliveryRepo: deliveries,
		CustomerRepo: NewMemCustomerRepo(),
		Log:          zap.NewNop(),
	}
	return service.NewSendWorker(delivery, send, zap.NewNop()), deliveries
}

func queuedJob(t *testing.T, deliveries *MemDeliveryRepo, method string, recipients ...queue.SendRecipient) queue.SendJob {
	t.Helper()
	for _, r := range recipients {
		require.NoError(t, deliveries.Create(&model.DeliveryReport{
			AttemptID:  r.AttemptID,
			CampaignID: 1,
			CustomerID: r.CustomerID,
			Status:     model.StatusPending,
		}))
	}
	return queue.SendJob{CampaignID: 1, Method: method, Recipients: recipients}
}

func TestWorkerProcessMarksSent(t *testing.T) {
	var calls []sendCall
	worker, deliveries := newWorkerFixture(func(method, address, content string) error {
		calls = append(calls, sendCall{method, address, content})
		return nil
	})

	job := queuedJob(t, deliveries, "email",
		queue.SendRecipient{AttemptID: "a1", CustomerID: 10, Email: "alice@example.com", Content: "Hello Alice"},
		queue.SendRecipient{AttemptID: "a2", CustomerID: 11, Email: "bob@example.com", Content: "Hello Bob"},
	)

	require.NoError(t, worker.Process(job))

	require.Len(t, calls, 2)
	assert.Equal(t, sendCall{"email", "alice@example.com", "Hello Alice"}, calls[0])

	for _, attemptID := range []string{"a1", "a2"} {
		report, err := deliveries.GetByAttemptID(attemptID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSent, report.Status)
	}
}

func TestWorkerProcessSmsUsesPhone(t *testing.T) {
	var calls []sendCall
	worker, deliveries := newWorkerFixture(func(method, address, content string) error {
		calls = append(calls, sendCall{method, address, content})
		return nil
	})

	job := queuedJob(t, deliveries, "sms",
		queue.SendRecipient{AttemptID: "a1", CustomerID: 10, Phone: "+15550100", Content: "Hi"},
	)

	require.NoError(t, worker.Process(job))
	require.Len(t, calls, 1)
	assert.Equal(t, "+15550100", calls[0].address)
}

func TestWorkerProcessRecordsProviderFailure(t *testing.T) {
	worker, deliveries := newWorkerFixture(func(method, address, content string) error {
		if address == "bad@example.com" {
			return errors.New("smtp timeout")
		}
		return nil
	})

	job := queuedJob(t, deliveries, "email",
		queue.SendRecipient{AttemptID: "a1", CustomerID: 10, Email: "bad@example.com"},
		queue.SendRecipient{AttemptID: "a2", CustomerID: 11, Email: "ok@example.com"},
	)

	// one provider failure does not fail the batch
	require.NoError(t, worker.Process(job))

	failed, err := deliveries.GetByAttemptID("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, failed.Status)
	assert.Equal(t, "smtp timeout", failed.LastError)

	sent, err := deliveries.GetByAttemptID("a2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
}

func TestWorkerProcessLedgerErrorBubblesUp(t *testing.T) {
	worker, _ := newWorkerFixture(func(method, address, content string) error {
		return nil
	})

	// the attempt was never written to the ledger
	job := queue.SendJob{
		CampaignID: 1,
		Method:     "email",
		Recipients: []queue.SendRecipient{{AttemptID: "ghost", CustomerID: 10, Email: "a@example.com"}},
	}

	assert.Error(t, worker.Process(job), "unknown attempt must surface for redelivery")
}
