package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/schedule"
)

// BroadcastService is the top of the send pipeline: campaign lifecycle plus
// resolve -> render -> dispatch for one campaign at a time.
type BroadcastService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	UserRepo     repository.UserRepositoryInterface
	DeliveryRepo repository.DeliveryReportRepositoryInterface
	Audience     *AudienceService
	Dispatcher   *DispatcherService
	Log          *zap.Logger
}

// SendResult summarizes a manual send for the API caller.
type SendResult struct {
	CampaignID     int64  `json:"campaign_id"`
	TotalCustomers int    `json:"total_customers"`
	ValidCustomers int    `json:"valid_customers"`
	Status         string `json:"status"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

// Run executes one dispatch pass for a campaign. Auto campaigns that are not
// live are skipped silently; a manual campaign with an empty audience is
// deleted and reported as unsendable.
func (s *BroadcastService) Run(c *model.Campaign) error {
	if c.Kind != model.KindManual && !c.IsLive {
		return nil
	}

	// Visitor-triggered messenger content is delivered by the widget on
	// visit, not by this pipeline.
	if c.Kind == model.KindVisitorAuto && c.Channel.Kind == model.MethodMessenger {
		return nil
	}

	sender, err := s.UserRepo.GetByID(c.FromUserID)
	if err != nil {
		return err
	}
	if sender == nil {
		return fmt.Errorf("sender user %d not found", c.FromUserID)
	}

	customers, err := s.Audience.Resolve(c)
	if err != nil {
		return err
	}

	if len(customers) == 0 {
		if c.Kind == model.KindManual {
			if err := s.CampaignRepo.Delete(c.ID); err != nil {
				s.Log.Error("failed to remove unsendable campaign", zap.Int64("campaign_id", c.ID), zap.Error(err))
			}
			return appErrors.ErrNoRecipients
		}
		// an auto pass with nobody matching is simply a quiet pass
		return nil
	}

	return s.Dispatcher.Dispatch(c, customers, sender)
}

// SendManual triggers a one-off send of a manual campaign.
func (s *BroadcastService) SendManual(id int64) (*SendResult, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign.IsDraft {
		return nil, fmt.Errorf("campaign %d is still a draft", id)
	}

	if err := s.Run(campaign); err != nil {
		return nil, err
	}

	return &SendResult{
		CampaignID:     campaign.ID,
		TotalCustomers: campaign.TotalCustomers,
		ValidCustomers: campaign.ValidCustomers,
		Status:         "dispatched",
	}, nil
}

// CreateCampaign validates and stores a new campaign in draft state.
func (s *BroadcastService) CreateCampaign(c *model.Campaign) error {
	if err := c.Channel.Validate(); err != nil {
		return err
	}
	if c.Kind == model.KindAuto || c.Kind == model.KindVisitorAuto {
		if _, err := schedule.Compile(c.ScheduleDate); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}

	c.IsDraft = true
	c.IsLive = false
	return s.CampaignRepo.Create(c)
}

// UpdateCampaign re-validates an edit. Manual campaigns cannot be edited
// once created; editing a live campaign does not reset its ledger.
func (s *BroadcastService) UpdateCampaign(c *model.Campaign) error {
	existing, err := s.CampaignRepo.GetByID(c.ID)
	if err != nil {
		return err
	}
	if existing.Kind == model.KindManual {
		return fmt.Errorf("can not update manual campaign")
	}

	if err := c.Channel.Validate(); err != nil {
		return err
	}
	if c.Kind == model.KindAuto || c.Kind == model.KindVisitorAuto {
		if _, err := schedule.Compile(c.ScheduleDate); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}
	return s.CampaignRepo.Update(c)
}

func (s *BroadcastService) SetLive(id int64) error {
	return s.CampaignRepo.SetLive(id, true)
}

// Pause takes effect for future ticks only; in-flight dispatches finish.
func (s *BroadcastService) Pause(id int64) error {
	return s.CampaignRepo.SetLive(id, false)
}

func (s *BroadcastService) DeleteCampaign(id int64) error {
	if _, err := s.CampaignRepo.GetByID(id); err != nil {
		return err
	}
	return s.CampaignRepo.Delete(id)
}

// ListCampaigns fetches campaigns with pagination
func (s *BroadcastService) ListCampaigns(page, pageSize int, method, kind string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.List(offset, pageSize, method, kind)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetails fetches a campaign plus its ledger stats.
func (s *BroadcastService) GetCampaignDetails(id int64) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	stats, err := s.DeliveryRepo.Stats(id)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	stats["total"] = total

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// RenderPreview renders the campaign template for one customer, optionally
// with an override template.
func (s *BroadcastService) RenderPreview(campaignID, customerID int64, overrideTemplate *string) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}

	customer, err := s.CustomerRepo.GetByID(customerID)
	if err != nil {
		return "", err
	}
	if customer == nil {
		return "", fmt.Errorf("customer not found")
	}

	sender, err := s.UserRepo.GetByID(campaign.FromUserID)
	if err != nil {
		return "", err
	}

	template := campaign.Channel.Content()
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		template = *overrideTemplate
	}
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("template cannot be empty")
	}

	return RenderTemplate(template, customer, sender), nil
}
