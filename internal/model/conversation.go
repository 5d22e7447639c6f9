// internal/model/conversation.go
package model

import "time"

const ConversationStatusNew = "new"

// Conversation is a thread between the sending user and one customer on a
// messenger integration. One thread exists per (integration, customer, user).
type Conversation struct {
	ID            int64     `json:"id"`
	IntegrationID int64     `json:"integration_id"`
	CustomerID    int64     `json:"customer_id"`
	UserID        int64     `json:"user_id"`
	Content       string    `json:"content"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationMessage carries campaign provenance so a thread message can be
// traced back to the broadcast that produced it.
type ConversationMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	CampaignID     int64     `json:"campaign_id"`
	UserID         int64     `json:"user_id"`
	CustomerID     int64     `json:"customer_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
