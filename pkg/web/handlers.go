// Package web provides the HTTP surface: campaign start/read endpoints and
// the provider webhook that feeds message events into the engine.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/cadence/pkg/campaign"
	"github.com/dukex/cadence/pkg/eventbus"
	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	campaignService *campaign.Service
	persistence     persistence.Persistence
	eventBus        eventbus.EventBus
	validator       *validator.Validate
}

func NewAPIHandlers(
	campaignService *campaign.Service,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		campaignService: campaignService,
		persistence:     store,
		eventBus:        eventBus,
		validator:       validator,
	}
}

func (h *APIHandlers) StartCampaign(c fiber.Ctx) error {
	var req StartCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, result, err := h.campaignService.StartCampaign(c.Context(), req.TenantID, req.ContactID, req.LeadID, req.Plan)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"campaign": created,
		"start":    result,
	})
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	found, pending, err := h.campaignService.CampaignByID(c.Context(), tenantID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"campaign":        found,
		"pending_actions": pending,
	})
}

// ReceiveWebhookEvent records a provider occurrence and hands it to the
// worker through the bus. Recording and advancing are decoupled so a slow
// advance never blocks webhook ingestion.
func (h *APIHandlers) ReceiveWebhookEvent(c fiber.Ctx) error {
	var req WebhookEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	eventType := models.EventType(req.Type)
	if !eventType.IsReal() {
		return badRequest(c, "Unknown event type: "+req.Type)
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	message, err := h.persistence.OutboundMessageByID(c.Context(), req.TenantID, req.MessageID)
	if err != nil {
		if persistence.IsMessageNotFound(err) {
			return notFound(c, "message not found")
		}

		return internalError(c, err)
	}

	messageEvent := models.NewMessageEvent(req.TenantID, message.ID, eventType, occurredAt)

	err = h.persistence.CreateMessageEvent(c.Context(), messageEvent)
	if err != nil {
		return internalError(c, err)
	}

	received := events.MessageEventReceived{
		BaseEvent:      events.NewBaseEvent(events.MessageEventReceivedEvent, req.TenantID, message.CampaignID),
		MessageEventID: messageEvent.ID,
		MessageID:      message.ID,
		EventType:      eventType,
		OccurredAt:     occurredAt,
	}

	err = h.eventBus.Publish(c.Context(), message.CampaignID, received)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message_event_id": messageEvent.ID,
		"campaign_id":      message.CampaignID,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
