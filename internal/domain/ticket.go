package domain

import "time"

// TicketStatus enumerates board columns a ticket can occupy.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

// DefaultColumns is the board column set applied when a vendor has not
// configured custom columns.
var DefaultColumns = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
	TicketStatusResolved,
}

// TicketPriority enumerates canonical SLA urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketSource identifies which ingestion path created a ticket.
type TicketSource string

const (
	TicketSourceManual     TicketSource = "manual"
	TicketSourceZabbix     TicketSource = "zabbix"
	TicketSourceJira       TicketSource = "jira"
	TicketSourceServiceNow TicketSource = "servicenow"
	TicketSourceGeneric    TicketSource = "generic"
)

// Ticket is the canonical incident record. SLADeadline is derived exactly
// once at creation and never recomputed; AuditTrail is append-only.
type Ticket struct {
	ID           string
	TenantID     string
	VendorID     string
	Title        string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	Source       TicketSource
	CustomerName string
	ExternalID   string
	SLADeadline  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	AuditTrail   []AuditEntry
}

// IsTerminal reports whether the status is a resting state. Reopening from a
// terminal state is still legal; the board is a free graph, not a pipeline.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}
