// internal/model/campaign.go
package model

import (
	"fmt"
	"time"
)

// Trigger kinds
const (
	KindManual      = "manual"
	KindAuto        = "auto"
	KindVisitorAuto = "visitorAuto"
)

// Delivery methods (channel kinds)
const (
	MethodEmail     = "email"
	MethodMessenger = "messenger"
	MethodSms       = "sms"
)

type EmailPayload struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type MessengerPayload struct {
	BrandID int64  `json:"brand_id"`
	SentAs  string `json:"sent_as,omitempty"`
	Content string `json:"content"`
}

type SmsPayload struct {
	Content string `json:"content"`
}

// Channel is a tagged union: Kind selects which payload is populated,
// and Validate enforces exactly one.
type Channel struct {
	Kind      string            `json:"kind"`
	Email     *EmailPayload     `json:"email,omitempty"`
	Messenger *MessengerPayload `json:"messenger,omitempty"`
	Sms       *SmsPayload       `json:"sms,omitempty"`
}

func (c Channel) Validate() error {
	switch c.Kind {
	case MethodEmail:
		if c.Email == nil || c.Messenger != nil || c.Sms != nil {
			return fmt.Errorf("channel kind %q requires exactly the email payload", c.Kind)
		}
	case MethodMessenger:
		if c.Messenger == nil || c.Email != nil || c.Sms != nil {
			return fmt.Errorf("channel kind %q requires exactly the messenger payload", c.Kind)
		}
	case MethodSms:
		if c.Sms == nil || c.Email != nil || c.Messenger != nil {
			return fmt.Errorf("channel kind %q requires exactly the sms payload", c.Kind)
		}
	default:
		return fmt.Errorf("unknown channel kind %q", c.Kind)
	}
	return nil
}

// Content returns the template body of the active payload.
func (c Channel) Content() string {
	switch c.Kind {
	case MethodEmail:
		if c.Email != nil {
			return c.Email.Content
		}
	case MethodMessenger:
		if c.Messenger != nil {
			return c.Messenger.Content
		}
	case MethodSms:
		if c.Sms != nil {
			return c.Sms.Content
		}
	}
	return ""
}

// ScheduleDate describes when an auto campaign recurs. Type is one of
// minute, hour, day, month, year, or a numeric day-of-month string "1".."31".
type ScheduleDate struct {
	Type  string `json:"type"`
	Month int    `json:"month,omitempty"`
	Day   int    `json:"day,omitempty"`
	Time  string `json:"time,omitempty"`
}

type Campaign struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Kind           string        `json:"kind"`
	IsDraft        bool          `json:"is_draft"`
	IsLive         bool          `json:"is_live"`
	FromUserID     int64         `json:"from_user_id"`
	CustomerIDs    []int64       `json:"customer_ids,omitempty"`
	TagIDs         []int64       `json:"tag_ids,omitempty"`
	BrandIDs       []int64       `json:"brand_ids,omitempty"`
	SegmentID      *int64        `json:"segment_id,omitempty"`
	Channel        Channel       `json:"channel"`
	ScheduleDate   *ScheduleDate `json:"schedule_date,omitempty"`
	LastRunAt      *time.Time    `json:"last_run_at,omitempty"`
	TotalCustomers int           `json:"total_customers"`
	ValidCustomers int           `json:"valid_customers"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`
}

// StampsLastRun reports whether firing this campaign must persist LastRunAt.
// Only month and year recurrences use it as a once-per-period guard.
func (c *Campaign) StampsLastRun() bool {
	if c.ScheduleDate == nil {
		return false
	}
	return c.ScheduleDate.Type == "month" || c.ScheduleDate.Type == "year"
}
