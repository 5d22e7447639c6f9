package repository

import (
	"database/sql"
	"time"

	"github.com/molevo/broadcast-backend/internal/model"
)

type ConversationRepositoryInterface interface {
	// FindOrCreate returns the single thread for (integration, customer,
	// user), creating it if needed. The unique constraint on that triple is
	// what keeps concurrent ticks from opening duplicate threads.
	FindOrCreate(integrationID, customerID, userID int64, content string) (*model.Conversation, error)
	AppendMessage(m *model.ConversationMessage) error
}

type ConversationRepository struct {
	DB *sql.DB
}

func (r *ConversationRepository) FindOrCreate(integrationID, customerID, userID int64, content string) (*model.Conversation, error) {
	insert := `
        INSERT INTO conversations (integration_id, customer_id, user_id, content, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (integration_id, customer_id, user_id) DO NOTHING
        RETURNING id, created_at
    `
	conv := &model.Conversation{
		IntegrationID: integrationID,
		CustomerID:    customerID,
		UserID:        userID,
		Content:       content,
		Status:        model.ConversationStatusNew,
	}

	err := r.DB.QueryRow(insert, integrationID, customerID, userID, content,
		model.ConversationStatusNew, time.Now()).Scan(&conv.ID, &conv.CreatedAt)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// Lost the insert race or the thread already existed; fetch it.
	query := `
        SELECT id, integration_id, customer_id, user_id, content, status, created_at
        FROM conversations
        WHERE integration_id=$1 AND customer_id=$2 AND user_id=$3
    `
	err = r.DB.QueryRow(query, integrationID, customerID, userID).Scan(
		&conv.ID, &conv.IntegrationID, &conv.CustomerID, &conv.UserID,
		&conv.Content, &conv.Status, &conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) AppendMessage(m *model.ConversationMessage) error {
	m.CreatedAt = time.Now()
	query := `
        INSERT INTO conversation_messages
            (conversation_id, campaign_id, user_id, customer_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		m.ConversationID, m.CampaignID, m.UserID, m.CustomerID, m.Content, m.CreatedAt,
	).Scan(&m.ID)
}

var _ ConversationRepositoryInterface = (*ConversationRepository)(nil)
