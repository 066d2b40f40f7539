package dto

import (
	"time"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// CreateTicketRequest is the operator manual-entry payload.
type CreateTicketRequest struct {
	VendorID     string                `json:"vendor_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	CustomerName string                `json:"customer_name"`
}

// TransitionRequest moves a ticket to a new board column.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   string              `json:"note"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	TenantID     string                `json:"tenant_id"`
	VendorID     string                `json:"vendor_id,omitempty"`
	Title        string                `json:"title"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	Source       domain.TicketSource   `json:"source"`
	CustomerName string                `json:"customer_name"`
	SLADeadline  *time.Time            `json:"sla_deadline,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the audit trail.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	ExternalID  string               `json:"external_id,omitempty"`
	AuditTrail  []AuditEntryResponse `json:"audit_trail"`
}

// AuditEntryResponse represents one trail entry. System marks entries the
// platform wrote itself so the board can render them apart from operator
// actions.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Note      string    `json:"note"`
	Actor     string    `json:"actor"`
	System    bool      `json:"system"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketSummary maps a domain ticket to its summary shape.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           t.ID,
		TenantID:     t.TenantID,
		VendorID:     t.VendorID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		Source:       t.Source,
		CustomerName: t.CustomerName,
		SLADeadline:  t.SLADeadline,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketDetail maps a domain ticket with its trail.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	detail := TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		Description:   t.Description,
		ExternalID:    t.ExternalID,
		AuditTrail:    make([]AuditEntryResponse, 0, len(t.AuditTrail)),
	}
	for _, entry := range t.AuditTrail {
		detail.AuditTrail = append(detail.AuditTrail, AuditEntryResponse{
			ID:        entry.ID,
			Kind:      entry.Kind,
			Note:      entry.Note,
			Actor:     entry.Actor,
			System:    entry.IsSystemActor(),
			CreatedAt: entry.CreatedAt,
		})
	}
	return detail
}
