package service

import (
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/queue"
)

// SendFunc performs one provider call for a single recipient.
type SendFunc func(method, address, content string) error

// SendWorker processes queued provider batches: it performs the actual
// provider call per recipient and reports the terminal outcome back into the
// delivery ledger.
type SendWorker struct {
	Delivery *DeliveryService
	Send     SendFunc
	Log      *zap.Logger
}

func NewSendWorker(delivery *DeliveryService, send SendFunc, log *zap.Logger) *SendWorker {
	return &SendWorker{
		Delivery: delivery,
		Send:     send,
		Log:      log,
	}
}

// Process handles one batch. Per-recipient failures are recorded in the
// ledger and do not fail the batch; only ledger write errors bubble up so
// the queue can redeliver.
func (w *SendWorker) Process(job queue.SendJob) error {
	for _, recipient := range job.Recipients {
		address := recipient.Email
		if job.Method == "sms" {
			address = recipient.Phone
		}

		if err := w.Send(job.Method, address, recipient.Content); err != nil {
			w.Log.Warn("provider send failed",
				zap.String("attempt_id", recipient.AttemptID),
				zap.Error(err))
			if lerr := w.Delivery.ApplyFailure(recipient.AttemptID, err.Error()); lerr != nil {
				return lerr
			}
			continue
		}

		if err := w.Delivery.ApplyStatus(recipient.AttemptID, "sent"); err != nil {
			return err
		}
	}
	return nil
}
