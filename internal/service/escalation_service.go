package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/feed"
	"github.com/spec-kit/incident-platform/internal/repository"
)

// Escalation thresholds are vendor-policy-independent constants: a two-tier
// graduated warning gives operators lead time before breach while still
// flagging the breach itself.
const (
	ThresholdWarning   = "SLA_AT_80_PERCENT"
	ThresholdViolation = "SLA_VIOLATION"

	LevelWarning  = "WARNING"
	LevelCritical = "CRITICAL"

	warningRatio = 0.8

	// warningLead pulls the warning boundary one evaluation tick ahead of
	// the exact 80% point, so a minute-cadence sweep raises the warning
	// with the full lead time it promises. At a 120-minute budget the
	// warning opens at minute 95.
	warningLead = time.Minute
)

// Decision reports the outcome of one evaluation. Emitted is false both when
// no threshold is crossed and when the crossed threshold was already
// notified earlier.
type Decision struct {
	Threshold   string
	Level       string
	PercentUsed float64
	Emitted     bool
}

// EscalationService computes elapsed-vs-budget ratios and emits at most one
// notification per (ticket, threshold), ever. The already-notified set is
// persisted so timer sweeps and reactive evaluations never cause alert
// storms.
type EscalationService struct {
	tickets    repository.TicketRepository
	policy     *PolicyRegistry
	state      repository.EscalationStateRepository
	dispatcher events.Dispatcher
	feed       feed.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// EscalationDependencies bundles collaborators for the engine.
type EscalationDependencies struct {
	TicketRepo repository.TicketRepository
	Policy     *PolicyRegistry
	State      repository.EscalationStateRepository
	Dispatcher events.Dispatcher
	Feed       feed.Publisher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewEscalationService constructs the engine.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &EscalationService{
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		state:      deps.State,
		dispatcher: deps.Dispatcher,
		feed:       deps.Feed,
		logger:     deps.Logger,
		now:        now,
	}
}

// Evaluate measures the ticket against its vendor's resolution budget.
// Absence of a vendor or an SLA rule is a no-op, not an error. Emission
// failures are logged and absorbed; they never propagate to whatever
// triggered the evaluation.
func (s *EscalationService) Evaluate(ctx context.Context, ticket *domain.Ticket) (Decision, error) {
	if ticket.VendorID == "" {
		return Decision{}, nil
	}
	rule, ok, err := s.policy.SlaRuleFor(ctx, ticket.VendorID, ticket.Priority)
	if err != nil {
		return Decision{}, err
	}
	if !ok || rule.ResolutionTime <= 0 {
		return Decision{}, nil
	}

	// createdAt is server-assigned, so clock-skewed clients cannot shift
	// the budget
	elapsed := s.now().Sub(ticket.CreatedAt)
	budget := time.Duration(rule.ResolutionTime) * time.Minute
	percentUsed := float64(elapsed) / float64(budget)

	warningAfter := time.Duration(warningRatio*float64(budget)) - warningLead
	if warningAfter < 0 {
		warningAfter = 0
	}

	decision := Decision{PercentUsed: percentUsed}
	switch {
	case elapsed >= budget:
		decision.Threshold = ThresholdViolation
		decision.Level = LevelCritical
	case elapsed >= warningAfter:
		decision.Threshold = ThresholdWarning
		decision.Level = LevelWarning
	default:
		return decision, nil
	}

	first, err := s.state.MarkNotified(ctx, ticket.ID, decision.Threshold)
	if err != nil {
		return decision, err
	}
	if !first {
		return decision, nil
	}
	decision.Emitted = true

	s.emit(ctx, ticket, rule, decision)
	return decision, nil
}

func (s *EscalationService) emit(ctx context.Context, ticket *domain.Ticket, rule domain.SLARule, decision Decision) {
	vendorName := ""
	if vendor, err := s.policy.VendorByID(ctx, ticket.VendorID); err == nil {
		vendorName = vendor.Name
	} else {
		s.logger.Warn("vendor lookup failed during escalation",
			zap.String("vendor_id", ticket.VendorID), zap.Error(err))
	}

	entry := &domain.AuditEntry{
		Kind:  domain.AuditKindSLAEscalation,
		Note:  fmt.Sprintf("%s: %s at %.0f%% of budget", decision.Level, decision.Threshold, decision.PercentUsed*100),
		Actor: domain.SystemPrincipal,
	}
	if err := s.tickets.AppendAudit(ctx, ticket.ID, entry); err != nil {
		s.logger.Warn("escalation audit append failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else if s.feed != nil {
		if refreshed, err := s.tickets.GetByID(ctx, ticket.ID); err == nil {
			if err := s.feed.PublishTicket(ctx, refreshed); err != nil {
				s.logger.Warn("feed publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			}
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventSLAThresholdCrossed,
		TicketID: ticket.ID,
		TenantID: ticket.TenantID,
		Actor:    domain.SystemPrincipal,
		Payload: events.SLAThresholdCrossedPayload{
			Threshold:    decision.Threshold,
			Level:        decision.Level,
			PercentUsed:  decision.PercentUsed,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			Status:       ticket.Status,
			CustomerName: ticket.CustomerName,
			VendorName:   vendorName,
			SLATier:      fmt.Sprintf("%s/%dm", ticket.Priority, rule.ResolutionTime),
		},
	})

	s.logger.Info("sla threshold crossed",
		zap.String("ticket_id", ticket.ID),
		zap.String("threshold", decision.Threshold),
		zap.Float64("percent_used", decision.PercentUsed))
}

func (s *EscalationService) publishEvent(ctx context.Context, event events.Event) {
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
