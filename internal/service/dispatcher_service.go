package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/queue"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/schedule"
)

// DispatcherService sends rendered content to the resolved audience. The
// messenger channel is delivered directly into conversations; email and sms
// are handed to the external delivery worker through the work queue.
type DispatcherService struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	ConversationRepo repository.ConversationRepositoryInterface
	IntegrationRepo  repository.IntegrationRepositoryInterface
	DeliveryRepo     repository.DeliveryReportRepositoryInterface
	Queue            queue.Queue
	QueueTopic       string
	Log              *zap.Logger

	// Now is swappable in tests.
	Now func() time.Time
}

func (d *DispatcherService) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch fans the campaign out to its recipients. Counters are updated
// before any provider handoff so they reflect what was attempted even while
// confirmation is pending.
func (d *DispatcherService) Dispatch(c *model.Campaign, customers []model.Customer, sender *model.User) error {
	if len(customers) == 0 {
		return nil
	}

	customerIDs := make([]int64, 0, len(customers))
	valid := make([]model.Customer, 0, len(customers))
	for _, customer := range customers {
		customerIDs = append(customerIDs, customer.ID)
		if deliverable(c.Channel.Kind, &customer) {
			valid = append(valid, customer)
		}
	}

	if err := d.CampaignRepo.SetMatchedCustomers(c.ID, customerIDs, len(valid)); err != nil {
		return err
	}

	if len(valid) == 0 {
		d.Log.Warn("no deliverable recipients for channel",
			zap.Int64("campaign_id", c.ID),
			zap.String("method", c.Channel.Kind))
		return nil
	}

	switch c.Channel.Kind {
	case model.MethodMessenger:
		return d.sendViaMessenger(c, valid, sender)
	case model.MethodEmail, model.MethodSms:
		return d.enqueueProviderBatch(c, valid, sender)
	}
	return fmt.Errorf("unknown channel kind %q", c.Channel.Kind)
}

func deliverable(method string, c *model.Customer) bool {
	switch method {
	case model.MethodEmail:
		return c.PrimaryEmail != ""
	case model.MethodSms:
		return c.PrimaryPhone != ""
	}
	return true
}

// sendViaMessenger appends the rendered content to one conversation thread
// per recipient. There is no asynchronous confirmation for this channel, so
// the ledger entry is recorded as sent immediately.
func (d *DispatcherService) sendViaMessenger(c *model.Campaign, customers []model.Customer, sender *model.User) error {
	payload := c.Channel.Messenger
	if payload == nil {
		return fmt.Errorf("campaign %d has no messenger payload", c.ID)
	}

	integration, err := d.IntegrationRepo.FindByBrandAndKind(payload.BrandID, model.IntegrationMessenger)
	if err != nil {
		return err
	}
	if integration == nil {
		return &appErrors.ErrIntegrationNotFound{BrandID: payload.BrandID, Kind: model.IntegrationMessenger}
	}

	since := schedule.PeriodStart(c.ScheduleDate, d.now())
	var failures int

	for i := range customers {
		customer := &customers[i]

		dup, err := d.DeliveryRepo.HasAttemptSince(c.ID, customer.ID, since)
		if err != nil {
			d.Log.Error("attempt lookup failed", zap.Int64("customer_id", customer.ID), zap.Error(err))
			failures++
			continue
		}
		if dup {
			continue
		}

		rendered := RenderTemplate(payload.Content, customer, sender)

		conv, err := d.ConversationRepo.FindOrCreate(integration.ID, customer.ID, c.FromUserID, rendered)
		if err != nil {
			d.Log.Error("conversation create failed", zap.Int64("customer_id", customer.ID), zap.Error(err))
			failures++
			continue
		}

		msg := &model.ConversationMessage{
			ConversationID: conv.ID,
			CampaignID:     c.ID,
			UserID:         c.FromUserID,
			CustomerID:     customer.ID,
			Content:        rendered,
		}
		if err := d.ConversationRepo.AppendMessage(msg); err != nil {
			d.Log.Error("message append failed", zap.Int64("customer_id", customer.ID), zap.Error(err))
			failures++
			continue
		}

		report := &model.DeliveryReport{
			AttemptID:  uuid.NewString(),
			CampaignID: c.ID,
			CustomerID: customer.ID,
			Status:     model.StatusSent,
		}
		if err := d.DeliveryRepo.Create(report); err != nil {
			d.Log.Error("ledger write failed", zap.Int64("customer_id", customer.ID), zap.Error(err))
			failures++
		}
	}

	if failures == len(customers) {
		return fmt.Errorf("messenger dispatch failed for all %d recipients", failures)
	}
	return nil
}

// enqueueProviderBatch assembles the batch payload and hands it to the
// delivery worker. Pending ledger entries are written before the publish so
// a fast provider callback can never reference an unknown attempt. If the
// batch never reaches the channel, those entries are rolled back; otherwise
// they would dup-skip every recipient on the next pass and the batch would
// never be retried.
func (d *DispatcherService) enqueueProviderBatch(c *model.Campaign, customers []model.Customer, sender *model.User) error {
	since := schedule.PeriodStart(c.ScheduleDate, d.now())

	job := queue.SendJob{
		CampaignID: c.ID,
		Method:     c.Channel.Kind,
		Content:    c.Channel.Content(),
	}
	if c.Channel.Kind == model.MethodEmail && c.Channel.Email != nil {
		job.Subject = c.Channel.Email.Subject
	}

	attemptIDs := make([]string, 0, len(customers))

	for i := range customers {
		customer := &customers[i]

		dup, err := d.DeliveryRepo.HasAttemptSince(c.ID, customer.ID, since)
		if err != nil {
			d.rollbackUnpublished(attemptIDs)
			return err
		}
		if dup {
			continue
		}

		recipient := queue.SendRecipient{
			AttemptID:  uuid.NewString(),
			CustomerID: customer.ID,
			Name:       customer.Name(),
			Email:      customer.PrimaryEmail,
			Phone:      customer.PrimaryPhone,
			Content:    RenderTemplate(job.Content, customer, sender),
		}

		report := &model.DeliveryReport{
			AttemptID:  recipient.AttemptID,
			CampaignID: c.ID,
			CustomerID: customer.ID,
			Status:     model.StatusPending,
		}
		if err := d.DeliveryRepo.Create(report); err != nil {
			d.rollbackUnpublished(attemptIDs)
			return err
		}

		attemptIDs = append(attemptIDs, recipient.AttemptID)
		job.Recipients = append(job.Recipients, recipient)
	}

	if len(job.Recipients) == 0 {
		return nil
	}

	if err := d.Queue.Publish(d.QueueTopic, job); err != nil {
		d.rollbackUnpublished(attemptIDs)
		return err
	}

	d.Log.Info("queued provider batch",
		zap.Int64("campaign_id", c.ID),
		zap.String("method", job.Method),
		zap.Int("recipients", len(job.Recipients)))
	return nil
}

// rollbackUnpublished removes pending ledger entries for a batch that never
// made it onto the queue, so the recipients stay eligible for the next pass.
func (d *DispatcherService) rollbackUnpublished(attemptIDs []string) {
	if len(attemptIDs) == 0 {
		return
	}
	if err := d.DeliveryRepo.DeleteAttempts(attemptIDs); err != nil {
		d.Log.Error("failed to roll back unpublished ledger entries",
			zap.Strings("attempt_ids", attemptIDs), zap.Error(err))
	}
}
