package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/molevo/broadcast-backend/internal/model"
)

type DeliveryReportRepositoryInterface interface {
	Create(r *model.DeliveryReport) error
	GetByAttemptID(attemptID string) (*model.DeliveryReport, error)

	// MarkTerminal moves a pending entry to a terminal status. The update is
	// conditional on the entry still being pending; the boolean reports
	// whether a row actually changed.
	MarkTerminal(attemptID, status, lastError string) (bool, error)

	HasAttemptSince(campaignID, customerID int64, since time.Time) (bool, error)
	ListByCampaign(campaignID int64) ([]*model.DeliveryReport, error)
	Stats(campaignID int64) (map[string]int, error)

	// DeleteAttempts removes pending entries whose batch never reached the
	// channel, so the next pass can re-attempt those recipients. Entries a
	// callback already moved to a terminal status are left alone.
	DeleteAttempts(attemptIDs []string) error
}

type DeliveryReportRepository struct {
	DB *sql.DB
}

func (r *DeliveryReportRepository) Create(report *model.DeliveryReport) error {
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = model.StatusPending
	}

	query := `
        INSERT INTO delivery_reports
            (attempt_id, campaign_id, customer_id, status, last_error, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.Exec(query,
		report.AttemptID, report.CampaignID, report.CustomerID,
		report.Status, report.LastError, report.CreatedAt, report.UpdatedAt,
	)
	return err
}

func (r *DeliveryReportRepository) GetByAttemptID(attemptID string) (*model.DeliveryReport, error) {
	query := `
        SELECT attempt_id, campaign_id, customer_id, status, last_error, created_at, updated_at
        FROM delivery_reports
        WHERE attempt_id=$1
    `
	var report model.DeliveryReport
	err := r.DB.QueryRow(query, attemptID).Scan(
		&report.AttemptID, &report.CampaignID, &report.CustomerID,
		&report.Status, &report.LastError, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *DeliveryReportRepository) MarkTerminal(attemptID, status, lastError string) (bool, error) {
	query := `
        UPDATE delivery_reports
        SET status=$2, last_error=$3, updated_at=NOW()
        WHERE attempt_id=$1 AND status='pending'
    `
	res, err := r.DB.Exec(query, attemptID, status, lastError)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasAttemptSince is the dispatcher's idempotency check: one attempt per
// recipient, campaign and recurrence period even when a tick fires twice.
func (r *DeliveryReportRepository) HasAttemptSince(campaignID, customerID int64, since time.Time) (bool, error) {
	query := `
        SELECT 1 FROM delivery_reports
        WHERE campaign_id = $1 AND customer_id = $2 AND created_at >= $3
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRow(query, campaignID, customerID, since).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DeliveryReportRepository) ListByCampaign(campaignID int64) ([]*model.DeliveryReport, error) {
	query := `
        SELECT attempt_id, campaign_id, customer_id, status, last_error, created_at, updated_at
        FROM delivery_reports
        WHERE campaign_id=$1
        ORDER BY created_at
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []*model.DeliveryReport{}
	for rows.Next() {
		var report model.DeliveryReport
		if err := rows.Scan(
			&report.AttemptID, &report.CampaignID, &report.CustomerID,
			&report.Status, &report.LastError, &report.CreatedAt, &report.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

func (r *DeliveryReportRepository) Stats(campaignID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM delivery_reports WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *DeliveryReportRepository) DeleteAttempts(attemptIDs []string) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	_, err := r.DB.Exec(
		`DELETE FROM delivery_reports WHERE attempt_id = ANY($1) AND status='pending'`,
		pq.Array(attemptIDs),
	)
	return err
}

var _ DeliveryReportRepositoryInterface = (*DeliveryReportRepository)(nil)
