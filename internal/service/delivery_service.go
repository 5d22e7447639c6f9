package service

import (
	"go.uber.org/zap"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/repository"
)

// DeliveryService owns the delivery ledger state machine. Provider callbacks
// and the delivery worker both report through it.
type DeliveryService struct {
	DeliveryRepo repository.DeliveryReportRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	Log          *zap.Logger
}

// callback statuses the boundary accepts. bounce and complaint are provider
// outcomes that fold into failed and additionally flag the customer
// do-not-disturb.
var acceptedStatuses = map[string]string{
	"sent":      model.StatusSent,
	"failed":    model.StatusFailed,
	"bounce":    model.StatusFailed,
	"complaint": model.StatusFailed,
}

// ApplyStatus applies one asynchronous status report to the ledger.
// Transitions are monotonic: pending entries move to a terminal status once,
// repeating the same terminal status is a no-op, and a conflicting terminal
// status is logged as an anomaly without mutating the entry.
func (s *DeliveryService) ApplyStatus(attemptID, status string) error {
	return s.applyStatus(attemptID, status, "")
}

// ApplyFailure records a terminal failure together with the provider error.
func (s *DeliveryService) ApplyFailure(attemptID, lastError string) error {
	return s.applyStatus(attemptID, "failed", lastError)
}

func (s *DeliveryService) applyStatus(attemptID, status, lastError string) error {
	target, ok := acceptedStatuses[status]
	if !ok {
		return appErrors.ErrInvalidDeliveryStatus
	}

	report, err := s.DeliveryRepo.GetByAttemptID(attemptID)
	if err != nil {
		return err
	}
	if report == nil {
		return &appErrors.ErrUnknownDeliveryAttempt{AttemptID: attemptID}
	}

	if model.IsTerminalStatus(report.Status) {
		if report.Status == target {
			return nil // idempotent repeat
		}
		s.Log.Warn("conflicting terminal status ignored",
			zap.String("attempt_id", attemptID),
			zap.String("current", report.Status),
			zap.String("reported", status))
		return nil
	}

	changed, err := s.DeliveryRepo.MarkTerminal(attemptID, target, lastError)
	if err != nil {
		return err
	}
	if !changed {
		// Lost a race with another reporter; the entry is terminal now and
		// this report no longer applies.
		s.Log.Warn("status update raced with another terminal transition",
			zap.String("attempt_id", attemptID),
			zap.String("reported", status))
		return nil
	}

	if status == "bounce" || status == "complaint" {
		if err := s.CustomerRepo.SetDoNotDisturb(report.CustomerID, model.DoNotDisturbYes); err != nil {
			s.Log.Error("failed to flag customer do-not-disturb",
				zap.Int64("customer_id", report.CustomerID), zap.Error(err))
		}
	}

	return nil
}
