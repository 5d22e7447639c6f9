package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(c *model.Campaign) error
	Update(c *model.Campaign) error
	GetByID(id int64) (*model.Campaign, error)
	List(offset, limit int, method, kind string) ([]*model.Campaign, int, error)
	Delete(id int64) error
	SetLive(id int64, live bool) error

	// Scheduler support
	DueForTypes(types []string) ([]*model.Campaign, error)
	MarkLastRun(ids []int64, at time.Time) error

	// Dispatch counters
	SetMatchedCustomers(id int64, customerIDs []int64, valid int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, title, kind, is_draft, is_live, from_user_id,
	customer_ids, tag_ids, brand_ids, segment_id,
	method, payload, schedule_date, last_run_at,
	total_customers, valid_customers, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if err := c.Channel.Validate(); err != nil {
		return err
	}
	c.CreatedAt = time.Now()
	if c.Kind == "" {
		c.Kind = model.KindManual
	}

	payload, err := encodeChannelPayload(c.Channel)
	if err != nil {
		return err
	}
	scheduleDate, err := encodeScheduleDate(c.ScheduleDate)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO campaigns
            (title, kind, is_draft, is_live, from_user_id,
             customer_ids, tag_ids, brand_ids, segment_id,
             method, payload, schedule_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.Title, c.Kind, c.IsDraft, c.IsLive, c.FromUserID,
		pq.Array(c.CustomerIDs), pq.Array(c.TagIDs), pq.Array(c.BrandIDs), c.SegmentID,
		c.Channel.Kind, payload, scheduleDate, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	if err := c.Channel.Validate(); err != nil {
		return err
	}

	payload, err := encodeChannelPayload(c.Channel)
	if err != nil {
		return err
	}
	scheduleDate, err := encodeScheduleDate(c.ScheduleDate)
	if err != nil {
		return err
	}

	query := `
        UPDATE campaigns
        SET title=$1, kind=$2, from_user_id=$3,
            customer_ids=$4, tag_ids=$5, brand_ids=$6, segment_id=$7,
            method=$8, payload=$9, schedule_date=$10, updated_at=NOW()
        WHERE id=$11
    `
	_, err = r.DB.Exec(query,
		c.Title, c.Kind, c.FromUserID,
		pq.Array(c.CustomerIDs), pq.Array(c.TagIDs), pq.Array(c.BrandIDs), c.SegmentID,
		c.Channel.Kind, payload, scheduleDate, c.ID,
	)
	return err
}

func (r *CampaignRepository) GetByID(id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(offset, limit int, method, kind string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if method != "" {
		query += fmt.Sprintf(" AND method=$%d", argPos)
		args = append(args, method)
		argPos++
	}
	if kind != "" {
		query += fmt.Sprintf(" AND kind=$%d", argPos)
		args = append(args, kind)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Count total
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if method != "" {
		countQuery += fmt.Sprintf(" AND method=$%d", argPosCount)
		argsCount = append(argsCount, method)
		argPosCount++
	}
	if kind != "" {
		countQuery += fmt.Sprintf(" AND kind=$%d", argPosCount)
		argsCount = append(argsCount, kind)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// Delete removes the campaign and its delivery ledger as a unit.
func (r *CampaignRepository) Delete(id int64) error {
	if _, err := r.DB.Exec(`DELETE FROM delivery_reports WHERE campaign_id=$1`, id); err != nil {
		return err
	}
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

// SetLive toggles the live flag. Going live also clears the draft flag;
// pausing leaves everything else, including the ledger, untouched.
func (r *CampaignRepository) SetLive(id int64, live bool) error {
	var err error
	if live {
		_, err = r.DB.Exec(`UPDATE campaigns SET is_live=true, is_draft=false, updated_at=NOW() WHERE id=$1`, id)
	} else {
		_, err = r.DB.Exec(`UPDATE campaigns SET is_live=false, updated_at=NOW() WHERE id=$1`, id)
	}
	return err
}

// ====================== Scheduler support ======================

// DueForTypes returns live auto campaigns whose schedule type is one of the
// given values. The scheduler passes the types relevant to the current tick
// granularity; the compiled trigger rule does the final due check.
func (r *CampaignRepository) DueForTypes(types []string) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
        WHERE kind = ANY($1) AND is_live = true AND schedule_date->>'type' = ANY($2)`

	rows, err := r.DB.Query(query,
		pq.Array([]string{model.KindAuto, model.KindVisitorAuto}),
		pq.Array(types),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// MarkLastRun stamps lastRunAt for every campaign that actually fired in a
// daily batch. One batched update, not per recipient.
func (r *CampaignRepository) MarkLastRun(ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.DB.Exec(`UPDATE campaigns SET last_run_at=$1 WHERE id = ANY($2)`, at, pq.Array(ids))
	return err
}

// ====================== Dispatch counters ======================

// SetMatchedCustomers snapshots the resolved audience on the campaign so the
// counters reflect what was attempted even while provider confirmation is
// still pending.
func (r *CampaignRepository) SetMatchedCustomers(id int64, customerIDs []int64, valid int) error {
	query := `
        UPDATE campaigns
        SET customer_ids=$1, total_customers=$2, valid_customers=$3, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, pq.Array(customerIDs), len(customerIDs), valid, id)
	return err
}

// ====================== scan helpers ======================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var (
		c            model.Campaign
		segmentID    sql.NullInt64
		method       string
		payload      []byte
		scheduleDate []byte
		lastRunAt    sql.NullTime
		updatedAt    sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.Title, &c.Kind, &c.IsDraft, &c.IsLive, &c.FromUserID,
		pq.Array(&c.CustomerIDs), pq.Array(&c.TagIDs), pq.Array(&c.BrandIDs), &segmentID,
		&method, &payload, &scheduleDate, &lastRunAt,
		&c.TotalCustomers, &c.ValidCustomers, &c.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if segmentID.Valid {
		c.SegmentID = &segmentID.Int64
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		c.LastRunAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}

	c.Channel, err = decodeChannelPayload(method, payload)
	if err != nil {
		return nil, err
	}
	if len(scheduleDate) > 0 {
		var sd model.ScheduleDate
		if err := json.Unmarshal(scheduleDate, &sd); err != nil {
			return nil, err
		}
		c.ScheduleDate = &sd
	}

	return &c, nil
}

func encodeChannelPayload(ch model.Channel) ([]byte, error) {
	switch ch.Kind {
	case model.MethodEmail:
		return json.Marshal(ch.Email)
	case model.MethodMessenger:
		return json.Marshal(ch.Messenger)
	case model.MethodSms:
		return json.Marshal(ch.Sms)
	}
	return nil, fmt.Errorf("unknown channel kind %q", ch.Kind)
}

func decodeChannelPayload(method string, payload []byte) (model.Channel, error) {
	ch := model.Channel{Kind: method}
	switch method {
	case model.MethodEmail:
		var p model.EmailPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return ch, err
		}
		ch.Email = &p
	case model.MethodMessenger:
		var p model.MessengerPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return ch, err
		}
		ch.Messenger = &p
	case model.MethodSms:
		var p model.SmsPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return ch, err
		}
		ch.Sms = &p
	default:
		return ch, fmt.Errorf("unknown channel kind %q", method)
	}
	return ch, nil
}

func encodeScheduleDate(sd *model.ScheduleDate) ([]byte, error) {
	if sd == nil {
		return nil, nil
	}
	return json.Marshal(sd)
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
