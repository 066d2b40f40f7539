package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/config"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/observability"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// AlertPayload is the outbound escalation notification shape.
type AlertPayload struct {
	Metadata  AlertMetadata `json:"metadata"`
	Incident  AlertIncident `json:"incident"`
	Vendor    AlertVendor   `json:"vendor"`
	Timestamp time.Time     `json:"timestamp"`
}

// AlertMetadata identifies the emitting system.
type AlertMetadata struct {
	System      string `json:"system"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// AlertIncident carries the ticket snapshot of the alert.
type AlertIncident struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
}

// AlertVendor carries the vendor policy context of the alert.
type AlertVendor struct {
	Name    string `json:"name"`
	SLATier string `json:"sla_tier"`
	Alert   string `json:"alert"`
}

// NotificationService delivers escalation alerts to the configured external
// endpoint. Delivery is best-effort: failures are logged and swallowed, and
// never block or fail the operation that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	version    string
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig, version string) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		version:    version,
		client:     &http.Client{Timeout: cfg.Timeout()},
	}
}

// RegisterHandlers subscribes to escalation events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAThresholdCrossed, n.handleThresholdCrossed)
}

func (n *NotificationService) handleThresholdCrossed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAThresholdCrossedPayload)
	if !ok {
		n.logger.Warn("unexpected escalation payload type", zap.String("event_id", event.ID))
		return nil
	}

	alert := AlertPayload{
		Metadata: AlertMetadata{
			System:      n.cfg.System,
			Version:     n.version,
			Environment: n.cfg.Environment,
		},
		Incident: AlertIncident{
			ID:       event.TicketID,
			Title:    payload.Title,
			Priority: string(payload.Priority),
			Status:   string(payload.Status),
			Customer: payload.CustomerName,
		},
		Vendor: AlertVendor{
			Name:    payload.VendorName,
			SLATier: payload.SLATier,
			Alert:   fmt.Sprintf("%s: %s", payload.Level, payload.Threshold),
		},
		Timestamp: event.Timestamp,
	}

	err := n.Send(ctx, alert)
	n.metrics.RecordAlert(payload.Threshold, err == nil)
	if err != nil {
		n.logger.Error("escalation alert delivery failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("threshold", payload.Threshold),
			zap.Error(err))
	}
	return nil
}

// Send posts one alert to the configured endpoint. An unconfigured endpoint
// is a silent no-op so development runs do not spam logs.
func (n *NotificationService) Send(ctx context.Context, alert AlertPayload) error {
	if n.cfg.WebhookURL == "" {
		return nil
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apperrors.NewDeliveryError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewDeliveryError(fmt.Errorf("alert endpoint returned %d", resp.StatusCode))
	}
	return nil
}
