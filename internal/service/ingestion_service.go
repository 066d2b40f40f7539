package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/auth"
	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/feed"
	"github.com/spec-kit/incident-platform/internal/repository"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// IngestInput is the canonicalized view of a provider payload. Handlers
// decode the provider-shaped JSON at the boundary; nothing loosely typed
// travels past this struct.
type IngestInput struct {
	Summary            string
	TriggerName        string
	Description        string
	TriggerDescription string
	Message            string
	Severity           string
	Priority           string
	Key                string
	EventID            string
	Host               string
	TenantID           string
	CustomerName       string
}

// IngestionService normalizes external incidents into canonical tickets.
type IngestionService struct {
	tickets      repository.TicketRepository
	integrations repository.IntegrationRepository
	policy       *PolicyRegistry
	dispatcher   events.Dispatcher
	feed         feed.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// IngestionDependencies bundles collaborators for the gateway.
type IngestionDependencies struct {
	TicketRepo      repository.TicketRepository
	IntegrationRepo repository.IntegrationRepository
	Policy          *PolicyRegistry
	Dispatcher      events.Dispatcher
	Feed            feed.Publisher
	Logger          *zap.Logger
}

// NewIngestionService constructs the gateway.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	return &IngestionService{
		tickets:      deps.TicketRepo,
		integrations: deps.IntegrationRepo,
		policy:       deps.Policy,
		dispatcher:   deps.Dispatcher,
		feed:         deps.Feed,
		logger:       deps.Logger,
		now:          time.Now,
	}
}

// Ingest authorizes the connector, builds the canonical draft and persists
// it with its ingestion audit entry. The connector's last-sync update is a
// second, non-rolled-back step: ingestion favors "ticket exists" over strict
// cross-step atomicity.
func (s *IngestionService) Ingest(ctx context.Context, provider, token string, input IngestInput) (string, error) {
	integration, err := s.authorize(ctx, provider, token)
	if err != nil {
		return "", err
	}

	source := sourceForProvider(provider)
	tenantID := integration.TenantID
	if tenantID == "" {
		tenantID = input.TenantID
	}

	externalID := firstNonEmpty(input.Key, input.EventID)
	if externalID == "" {
		// synthesized ids keep the dedup key total; see idx_tickets_external
		externalID = fmt.Sprintf("%s-%d", provider, s.now().UnixNano())
	}

	if existing, err := s.tickets.GetByExternalID(ctx, tenantID, source, externalID); err == nil {
		s.logger.Info("duplicate delivery resolved to existing ticket",
			zap.String("ticket_id", existing.ID),
			zap.String("external_id", externalID))
		return existing.ID, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.MapError(err)
	}

	priority := NormalizePriority(provider, firstNonEmpty(input.Severity, input.Priority))

	status := integration.TargetQueue
	if status == "" {
		status = domain.TicketStatusOpen
	}

	ticket := &domain.Ticket{
		TenantID:     tenantID,
		VendorID:     integration.VendorID,
		Title:        firstNonEmpty(input.Summary, input.TriggerName, "unspecified incident"),
		Description:  firstNonEmpty(input.Description, input.TriggerDescription, input.Message, "unspecified incident"),
		Priority:     priority,
		Status:       status,
		Source:       source,
		CustomerName: firstNonEmpty(input.CustomerName, input.Host),
		ExternalID:   externalID,
	}

	if deadline, err := s.deriveDeadline(ctx, integration.VendorID, priority); err != nil {
		return "", apperrors.MapError(err)
	} else if deadline != nil {
		ticket.SLADeadline = deadline
	}

	entry := &domain.AuditEntry{
		Kind:  domain.AuditKindExternalIngestion,
		Note:  fmt.Sprintf("ingested from %s via connector %s", provider, integration.ID),
		Actor: domain.SystemPrincipal,
	}

	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateExternalID) {
			// lost the race against a concurrent retry of the same delivery
			existing, getErr := s.tickets.GetByExternalID(ctx, tenantID, source, externalID)
			if getErr != nil {
				return "", apperrors.MapError(getErr)
			}
			return existing.ID, nil
		}
		return "", apperrors.MapError(err)
	}

	s.finishIngestion(ctx, integration, ticket, provider)
	return ticket.ID, nil
}

// authorize resolves (provider, token) to exactly one active integration.
// Zero and multiple matches fail identically: the caller never learns which
// half of the credential was wrong.
func (s *IngestionService) authorize(ctx context.Context, provider, token string) (*domain.Integration, error) {
	candidates, err := s.integrations.ListActiveByProvider(ctx, provider)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var matched *domain.Integration
	matches := 0
	for i := range candidates {
		if auth.VerifyConnectorToken(candidates[i].TokenDigest, token) {
			matched = &candidates[i]
			matches++
		}
	}
	if matches != 1 {
		return nil, apperrors.NewUnauthorized("invalid connector credentials")
	}
	return matched, nil
}

func (s *IngestionService) deriveDeadline(ctx context.Context, vendorID string, priority domain.TicketPriority) (*time.Time, error) {
	rule, ok, err := s.policy.SlaRuleFor(ctx, vendorID, priority)
	if err != nil {
		return nil, err
	}
	if !ok || rule.ResolutionTime <= 0 {
		return nil, nil
	}
	deadline := s.now().Add(time.Duration(rule.ResolutionTime) * time.Minute)
	return &deadline, nil
}

// finishIngestion handles the non-critical tail of a successful ingestion:
// connector sync bookkeeping, event publication and the change feed. None of
// these can fail the ingestion itself.
func (s *IngestionService) finishIngestion(ctx context.Context, integration *domain.Integration, ticket *domain.Ticket, provider string) {
	if err := s.integrations.UpdateLastSync(ctx, integration.ID, s.now()); err != nil {
		s.logger.Warn("ticket created but connector last-sync update failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("integration_id", integration.ID),
			zap.Error(err))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventIntegrationSyncError,
			TicketID: ticket.ID,
			TenantID: ticket.TenantID,
			Actor:    domain.SystemPrincipal,
			Payload: events.IntegrationSyncErrorPayload{
				IntegrationID: integration.ID,
				Reason:        err.Error(),
			},
		})
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketIngested,
		TicketID: ticket.ID,
		TenantID: ticket.TenantID,
		Actor:    domain.SystemPrincipal,
		Payload: events.TicketIngestedPayload{
			IntegrationID: integration.ID,
			Provider:      provider,
			Source:        ticket.Source,
			Priority:      ticket.Priority,
			TargetQueue:   ticket.Status,
			Title:         ticket.Title,
		},
	})

	if err := s.feed.PublishTicket(ctx, ticket); err != nil {
		s.logger.Warn("feed publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *IngestionService) publishEvent(ctx context.Context, event events.Event) {
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

func sourceForProvider(provider string) domain.TicketSource {
	switch provider {
	case "zabbix":
		return domain.TicketSourceZabbix
	case "jira":
		return domain.TicketSourceJira
	case "servicenow":
		return domain.TicketSourceServiceNow
	default:
		return domain.TicketSourceGeneric
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
