package service_test

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
)

// --- In-memory mock repositories ---

type MemCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	nextID    int64
	deleted   []int64
	lastRuns  map[int64]time.Time
}

func NewMemCampaignRepo() *MemCampaignRepo {
	return &MemCampaignRepo{
		campaigns: map[int64]*model.Campaign{},
		nextID:    1,
		lastRuns:  map[int64]time.Time{},
	}
}

func (m *MemCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = c
	return nil
}

func (m *MemCampaignRepo) Update(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m *MemCampaignRepo) GetByID(id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *MemCampaignRepo) List(offset, limit int, method, kind string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range m.campaigns {
		all = append(all, c)
	}
	return all, len(all), nil
}

func (m *MemCampaignRepo) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MemCampaignRepo) SetLive(id int64, live bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.IsLive = live
	if live {
		c.IsDraft = false
	}
	return nil
}

func (m *MemCampaignRepo) DueForTypes(types []string) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Kind == model.KindManual || !c.IsLive || c.ScheduleDate == nil {
			continue
		}
		for _, t := range types {
			if c.ScheduleDate.Type == t {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched, nil
}

func (m *MemCampaignRepo) MarkLastRun(ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.lastRuns[id] = at
		if c, ok := m.campaigns[id]; ok {
			t := at
			c.LastRunAt = &t
		}
	}
	return nil
}

func (m *MemCampaignRepo) SetMatchedCustomers(id int64, customerIDs []int64, valid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.CustomerIDs = customerIDs
	c.TotalCustomers = len(customerIDs)
	c.ValidCustomers = valid
	return nil
}

type MemCustomerRepo struct {
	customers []model.Customer
	dndSet    map[int64]string
}

func NewMemCustomerRepo(customers ...model.Customer) *MemCustomerRepo {
	return &MemCustomerRepo{customers: customers, dndSet: map[int64]string{}}
}

func (m *MemCustomerRepo) GetByID(id int64) (*model.Customer, error) {
	for i := range m.customers {
		if m.customers[i].ID == id {
			c := m.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemCustomerRepo) ByIDs(ids []int64) ([]model.Customer, error) {
	out := []model.Customer{}
	for _, id := range ids {
		for i := range m.customers {
			c := m.customers[i]
			if c.ID == id && c.Reachable() {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *MemCustomerRepo) ByTagIDs(tagIDs []int64) ([]model.Customer, error) {
	out := []model.Customer{}
	for i := range m.customers {
		c := m.customers[i]
		if !c.Reachable() {
			continue
		}
		for _, want := range tagIDs {
			if containsID(c.TagIDs, want) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (m *MemCustomerRepo) ByIntegrationIDs(integrationIDs []int64) ([]model.Customer, error) {
	out := []model.Customer{}
	for i := range m.customers {
		c := m.customers[i]
		if c.Reachable() && containsID(integrationIDs, c.IntegrationID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemCustomerRepo) Each(fn func(c *model.Customer) error) error {
	for i := range m.customers {
		c := m.customers[i]
		if !c.Reachable() {
			continue
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemCustomerRepo) SetDoNotDisturb(id int64, value string) error {
	m.dndSet[id] = value
	return nil
}

func containsID(ids []int64, want int64) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

type MemSegmentRepo struct {
	segments map[int64]*model.Segment
}

func (m *MemSegmentRepo) GetByID(id int64) (*model.Segment, error) {
	return m.segments[id], nil
}

type MemIntegrationRepo struct {
	integrations []model.Integration
}

func (m *MemIntegrationRepo) IDsByBrands(brandIDs []int64) ([]int64, error) {
	ids := []int64{}
	for _, brandID := range brandIDs {
		for _, i := range m.integrations {
			if i.BrandID == brandID {
				ids = append(ids, i.ID)
			}
		}
	}
	return ids, nil
}

func (m *MemIntegrationRepo) FindByBrandAndKind(brandID int64, kind string) (*model.Integration, error) {
	for _, i := range m.integrations {
		if i.BrandID == brandID && i.Kind == kind {
			found := i
			return &found, nil
		}
	}
	return nil, nil
}

type MemUserRepo struct {
	users map[int64]*model.User
}

func (m *MemUserRepo) GetByID(id int64) (*model.User, error) {
	return m.users[id], nil
}

type convKey struct {
	integrationID, customerID, userID int64
}

type MemConversationRepo struct {
	mu            sync.Mutex
	conversations map[convKey]*model.Conversation
	messages      []*model.ConversationMessage
	nextID        int64
	createCalls   int
}

func NewMemConversationRepo() *MemConversationRepo {
	return &MemConversationRepo{conversations: map[convKey]*model.Conversation{}, nextID: 1}
}

func (m *MemConversationRepo) FindOrCreate(integrationID, customerID, userID int64, content string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := convKey{integrationID, customerID, userID}
	if conv, ok := m.conversations[key]; ok {
		return conv, nil
	}
	m.createCalls++
	conv := &model.Conversation{
		ID:            m.nextID,
		IntegrationID: integrationID,
		CustomerID:    customerID,
		UserID:        userID,
		Content:       content,
		Status:        model.ConversationStatusNew,
		CreatedAt:     time.Now(),
	}
	m.nextID++
	m.conversations[key] = conv
	return conv, nil
}

func (m *MemConversationRepo) AppendMessage(msg *model.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

type MemDeliveryRepo struct {
	mu      sync.Mutex
	reports map[string]*model.DeliveryReport
}

func NewMemDeliveryRepo() *MemDeliveryRepo {
	return &MemDeliveryRepo{reports: map[string]*model.DeliveryReport{}}
}

func (m *MemDeliveryRepo) Create(r *model.DeliveryReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.AttemptID]; ok {
		return fmt.Errorf("duplicate attempt %s", r.AttemptID)
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = model.StatusPending
	}
	copied := *r
	m.reports[r.AttemptID] = &copied
	return nil
}

func (m *MemDeliveryRepo) GetByAttemptID(attemptID string) (*model.DeliveryReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[attemptID]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MemDeliveryRepo) MarkTerminal(attemptID, status, lastError string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[attemptID]
	if !ok || r.Status != model.StatusPending {
		return false, nil
	}
	r.Status = status
	r.LastError = lastError
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemDeliveryRepo) HasAttemptSince(campaignID, customerID int64, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.CampaignID == campaignID && r.CustomerID == customerID && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemDeliveryRepo) ListByCampaign(campaignID int64) ([]*model.DeliveryReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.DeliveryReport{}
	for _, r := range m.reports {
		if r.CampaignID == campaignID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MemDeliveryRepo) Stats(campaignID int64) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for _, r := range m.reports {
		if r.CampaignID == campaignID {
			stats[r.Status]++
		}
	}
	return stats, nil
}

func (m *MemDeliveryRepo) DeleteAttempts(attemptIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range attemptIDs {
		if r, ok := m.reports[id]; ok && r.Status == model.StatusPending {
			delete(m.reports, id)
		}
	}
	return nil
}

// Snapshot copies the whole ledger for before/after comparisons.
func (m *MemDeliveryRepo) Snapshot() map[string]model.DeliveryReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := map[string]model.DeliveryReport{}
	for id, r := range m.reports {
		snap[id] = *r
	}
	return snap
}

type CaptureQueue struct {
	mu     sync.Mutex
	topics []string
	jobs   []any

	// failWith makes every Publish fail until cleared.
	failWith error
}

func (q *CaptureQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failWith != nil {
		return q.failWith
	}
	q.topics = append(q.topics, topic)
	q.jobs = append(q.jobs, payload)
	return nil
}
