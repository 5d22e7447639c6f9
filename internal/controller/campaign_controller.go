// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/molevo/broadcast-backend/internal/errors"
	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/service"
)

type CampaignController struct {
	Broadcast *service.BroadcastService
	Delivery  *service.DeliveryService
	Log       *zap.Logger
}

// Routes mounts the campaign API and the provider callback endpoint.
func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns", c.CreateCampaign)
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaign)
	r.Put("/campaigns/{id}", c.UpdateCampaign)
	r.Delete("/campaigns/{id}", c.DeleteCampaign)
	r.Post("/campaigns/{id}/live", c.SetLive)
	r.Post("/campaigns/{id}/pause", c.Pause)
	r.Post("/campaigns/{id}/send", c.SendCampaign)
	r.Post("/campaigns/{id}/personalized-preview", c.PersonalizedPreview)
	r.Post("/delivery-reports", c.DeliveryReport)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var campaign model.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Broadcast.CreateCampaign(&campaign); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	method := r.URL.Query().Get("method")
	kind := r.URL.Query().Get("kind")

	campaigns, pagination, err := c.Broadcast.ListCampaigns(page, pageSize, method, kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := c.Broadcast.GetCampaignDetails(id)
	if err != nil {
		c.writeCampaignError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var campaign model.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	campaign.ID = id

	if err := c.Broadcast.UpdateCampaign(&campaign); err != nil {
		c.writeCampaignError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.Broadcast.DeleteCampaign(id); err != nil {
		c.writeCampaignError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) SetLive(w http.ResponseWriter, r *http.Request) {
	c.toggleLive(w, r, c.Broadcast.SetLive)
}

func (c *CampaignController) Pause(w http.ResponseWriter, r *http.Request) {
	c.toggleLive(w, r, c.Broadcast.Pause)
}

func (c *CampaignController) toggleLive(w http.ResponseWriter, r *http.Request, toggle func(int64) error) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := toggle(id); err != nil {
		c.writeCampaignError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.Broadcast.SendManual(id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNoRecipients) {
			// surfaced to the originator; the campaign has been removed
			http.Error(w, "No recipients found", http.StatusUnprocessableEntity)
			return
		}
		c.writeCampaignError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		CustomerID       int64   `json:"customer_id"`
		OverrideTemplate *string `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.Broadcast.RenderPreview(id, body.CustomerID, body.OverrideTemplate)
	if err != nil {
		c.writeCampaignError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rendered_message": rendered,
		"customer_id":      body.CustomerID,
	})
}

// DeliveryReport is the inbound provider callback:
// {"delivery_attempt_id": "...", "status": "sent"|"failed"|"bounce"|"complaint"}.
func (c *CampaignController) DeliveryReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeliveryAttemptID string `json:"delivery_attempt_id"`
		Status            string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	err := c.Delivery.ApplyStatus(body.DeliveryAttemptID, body.Status)
	if err != nil {
		var unknown *appErrors.ErrUnknownDeliveryAttempt
		switch {
		case errors.Is(err, appErrors.ErrInvalidDeliveryStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &unknown):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) writeCampaignError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	c.Log.Error("campaign request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func campaignID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
