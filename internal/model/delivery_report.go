// internal/model/delivery_report.go
package model

import "time"

// Delivery statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// DeliveryReport is one ledger entry: a single provider-tracked delivery
// attempt. AttemptID is generated at dispatch time and is distinct from the
// customer id so a customer can receive multiple attempts across retries.
type DeliveryReport struct {
	AttemptID  string    `json:"attempt_id"`
	CampaignID int64     `json:"campaign_id"`
	CustomerID int64     `json:"customer_id"`
	Status     string    `json:"status"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsTerminalStatus reports whether a ledger status is frozen. Entries only
// move pending -> sent|failed.
func IsTerminalStatus(status string) bool {
	return status == StatusSent || status == StatusFailed
}
