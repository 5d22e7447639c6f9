// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrNoRecipients is returned when a manual campaign resolves to an empty
// audience. The campaign is removed rather than left in an ambiguous state.
var ErrNoRecipients = errors.New("no recipients found")

// ErrIntegrationNotFound aborts a single campaign's messenger dispatch.
type ErrIntegrationNotFound struct {
	BrandID int64
	Kind    string
}

func (e *ErrIntegrationNotFound) Error() string {
	return fmt.Sprintf("no %s integration found for brand %d", e.Kind, e.BrandID)
}

// ErrUnknownDeliveryAttempt rejects a provider callback that references an
// attempt id the ledger has never seen.
type ErrUnknownDeliveryAttempt struct {
	AttemptID string
}

func (e *ErrUnknownDeliveryAttempt) Error() string {
	return fmt.Sprintf("unknown delivery attempt %s", e.AttemptID)
}

// ErrInvalidDeliveryStatus rejects a callback carrying a status value the
// ledger does not recognize.
var ErrInvalidDeliveryStatus = errors.New("invalid delivery status")
