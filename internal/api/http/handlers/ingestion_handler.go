package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-platform/internal/api/dto"
	"github.com/spec-kit/incident-platform/internal/service"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// IngestionHandler exposes the inbound webhook endpoints. Provider payloads
// are decoded into their known shapes here; nothing loosely typed crosses
// into the service layer.
type IngestionHandler struct {
	service *service.IngestionService
}

// NewIngestionHandler constructs handler.
func NewIngestionHandler(ingestionService *service.IngestionService) *IngestionHandler {
	return &IngestionHandler{service: ingestionService}
}

// IngestGeneric POST /ingest/generic.
func (h *IngestionHandler) IngestGeneric(c *fiber.Ctx) error {
	var req dto.GenericWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Provider == "" {
		return apperrors.NewValidationError("provider required", nil)
	}

	input := service.IngestInput{
		Summary:            req.Payload.Summary,
		TriggerName:        req.Payload.TriggerName,
		Description:        req.Payload.Description,
		TriggerDescription: req.Payload.TriggerDescription,
		Priority:           req.Payload.Priority,
		Severity:           req.Payload.Severity,
		Key:                req.Payload.Key,
		EventID:            req.Payload.EventID,
		TenantID:           req.Payload.TenantID,
		CustomerName:       req.Payload.CustomerName,
	}
	id, err := h.service.Ingest(c.UserContext(), req.Provider, req.Token, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.IngestResponse{Success: true, ID: id})
}

// IngestZabbix POST /ingest/zabbix.
func (h *IngestionHandler) IngestZabbix(c *fiber.Ctx) error {
	var req dto.ZabbixWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.IngestInput{
		TriggerName:  req.TriggerName,
		Message:      req.Message,
		Severity:     req.Severity,
		EventID:      req.EventID,
		Host:         req.Host,
		TenantID:     req.TenantID,
		CustomerName: req.CustomerName,
	}
	id, err := h.service.Ingest(c.UserContext(), "zabbix", req.Token, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.IngestResponse{Success: true, ID: id})
}
