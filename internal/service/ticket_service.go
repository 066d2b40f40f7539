package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/feed"
	"github.com/spec-kit/incident-platform/internal/repository"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// transitionRetries bounds the optimistic-concurrency retry loop.
const transitionRetries = 3

// TicketService owns the board state machine: every status change goes
// through Transition and lands atomically with its audit entry.
type TicketService struct {
	tickets    repository.TicketRepository
	policy     *PolicyRegistry
	escalation *EscalationService
	dispatcher events.Dispatcher
	feed       feed.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Policy     *PolicyRegistry
	Escalation *EscalationService
	Dispatcher events.Dispatcher
	Feed       feed.Publisher
	Logger     *zap.Logger
}

// ManualTicketInput describes the operator manual-entry path.
type ManualTicketInput struct {
	VendorID     string
	Title        string
	Description  string
	Priority     domain.TicketPriority
	CustomerName string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		escalation: deps.Escalation,
		dispatcher: deps.Dispatcher,
		feed:       deps.Feed,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// CreateManual creates a ticket on behalf of an operator.
func (s *TicketService) CreateManual(ctx context.Context, operator *domain.Operator, input ManualTicketInput) (*domain.Ticket, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		TenantID:     operator.TenantID,
		VendorID:     input.VendorID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Priority:     priority,
		Status:       domain.TicketStatusOpen,
		Source:       domain.TicketSourceManual,
		CustomerName: input.CustomerName,
	}

	if input.VendorID != "" {
		rule, ok, err := s.policy.SlaRuleFor(ctx, input.VendorID, priority)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if ok && rule.ResolutionTime > 0 {
			deadline := s.now().Add(time.Duration(rule.ResolutionTime) * time.Minute)
			ticket.SLADeadline = &deadline
		}
	}

	entry := &domain.AuditEntry{
		Kind:  domain.AuditKindManualCreation,
		Note:  "created via manual entry",
		Actor: operator.ID,
	}
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		TenantID: ticket.TenantID,
		Actor:    operator.ID,
	})
	s.publishSnapshot(ctx, ticket)
	return ticket, nil
}

// Transition moves a ticket to a new board column. The board is a free
// graph: any configured column is reachable from any other, and reopening
// from resolved or closed is legal. Operator-initiated moves carry a
// mandatory justification note; the status update and the audit append are
// one atomic store operation, retried on lost compare-and-swap races.
func (s *TicketService) Transition(ctx context.Context, ticketID string, newStatus domain.TicketStatus, note, operator string) (*domain.Ticket, error) {
	note = strings.TrimSpace(note)
	if operator != domain.SystemPrincipal && utf8.RuneCountInString(note) < domain.MinJustificationLen {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("justification note of at least %d characters required", domain.MinJustificationLen), nil)
	}
	if operator == domain.SystemPrincipal && note == "" {
		note = "automated transition"
	}

	var updated *domain.Ticket
	for attempt := 0; attempt < transitionRetries; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}

		if err := s.validateTarget(ctx, ticket, newStatus); err != nil {
			return nil, err
		}

		entry := &domain.AuditEntry{
			Kind:  domain.AuditKindBoardMovePrefix + strings.ToUpper(string(newStatus)),
			Note:  note,
			Actor: operator,
		}
		updated, err = s.tickets.ApplyTransition(ctx, ticketID, ticket.UpdatedAt, newStatus, entry)
		if err != nil {
			if errors.Is(err, repository.ErrStaleTicket) {
				continue
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}

		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			TenantID: ticket.TenantID,
			Actor:    operator,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: ticket.Status,
				NewStatus: newStatus,
				Note:      note,
			},
		})
		s.publishSnapshot(ctx, updated)

		if newStatus != domain.TicketStatusResolved {
			s.triggerEscalation(updated)
		}
		return updated, nil
	}
	return nil, apperrors.NewStoreUnavailable(repository.ErrStaleTicket)
}

// GetTicket returns a ticket with its full audit trail.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the dashboard filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// validateTarget enforces "target column exists in the vendor's configured
// set". Terminal states stay reachable even when a custom column set omits
// them.
func (s *TicketService) validateTarget(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus) error {
	if newStatus.IsTerminal() {
		return nil
	}
	columns, err := s.policy.ColumnsFor(ctx, ticket.VendorID)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, col := range columns {
		if col == newStatus {
			return nil
		}
	}
	return apperrors.NewConflict("status not in vendor's configured columns",
		map[string]any{"status": newStatus, "vendor_id": ticket.VendorID})
}

// triggerEscalation runs the SLA evaluation for this ticket without tying it
// to the caller: evaluation failures must never fail the transition.
func (s *TicketService) triggerEscalation(ticket *domain.Ticket) {
	if s.escalation == nil {
		return
	}
	snapshot := *ticket
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.escalation.Evaluate(ctx, &snapshot); err != nil {
			s.logger.Warn("post-transition sla evaluation failed",
				zap.String("ticket_id", snapshot.ID), zap.Error(err))
		}
	}()
}

func (s *TicketService) publishSnapshot(ctx context.Context, ticket *domain.Ticket) {
	if s.feed == nil {
		return
	}
	if err := s.feed.PublishTicket(ctx, ticket); err != nil {
		s.logger.Warn("feed publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
