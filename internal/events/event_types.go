package events

import (
	"time"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIngested       EventType = "ticket_ingested"
	EventTicketCreated        EventType = "ticket_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventSLAThresholdCrossed  EventType = "sla_threshold_crossed"
	EventIntegrationSyncError EventType = "integration_sync_error"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	TenantID  string      `json:"tenant_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIngestedPayload payload.
type TicketIngestedPayload struct {
	IntegrationID string                `json:"integration_id"`
	Provider      string                `json:"provider"`
	Source        domain.TicketSource   `json:"source"`
	Priority      domain.TicketPriority `json:"priority"`
	TargetQueue   domain.TicketStatus   `json:"target_queue"`
	Title         string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// SLAThresholdCrossedPayload payload. Carries everything the outbound alert
// needs so the notification worker never re-reads the store.
type SLAThresholdCrossedPayload struct {
	Threshold    string                `json:"threshold"`
	Level        string                `json:"level"`
	PercentUsed  float64               `json:"percent_used"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	CustomerName string                `json:"customer_name"`
	VendorName   string                `json:"vendor_name"`
	SLATier      string                `json:"sla_tier"`
}

// IntegrationSyncErrorPayload payload for the partial-success path where the
// ticket was created but the connector's last-sync update failed.
type IntegrationSyncErrorPayload struct {
	IntegrationID string `json:"integration_id"`
	Reason        string `json:"reason"`
}
