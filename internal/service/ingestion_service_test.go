package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/events"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

func TestIngestCreatesTicketInTargetQueue(t *testing.T) {
	env := newTestEnv(t)
	env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusInProgress)
	svc := env.newIngestionService()

	id, err := svc.Ingest(context.Background(), "zabbix", testToken, IngestInput{
		TriggerName: "disk space low",
		Message:     "/var at 95%",
		Severity:    "High",
		EventID:     "evt-42",
		Host:        "web-01",
	})
	require.NoError(t, err)

	ticket, err := env.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, "disk space low", ticket.Title)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, domain.TicketSourceZabbix, ticket.Source)
	assert.Equal(t, testTenant, ticket.TenantID)
	assert.Equal(t, "evt-42", ticket.ExternalID)
	assert.Equal(t, "web-01", ticket.CustomerName)

	require.Len(t, ticket.AuditTrail, 1)
	assert.Equal(t, domain.AuditKindExternalIngestion, ticket.AuditTrail[0].Kind)
	assert.Equal(t, domain.SystemPrincipal, ticket.AuditTrail[0].Actor)
}

func TestIngestDerivesSLADeadlineOnce(t *testing.T) {
	env := newTestEnv(t)
	env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusOpen)
	svc := env.newIngestionService()

	id, err := svc.Ingest(context.Background(), "zabbix", testToken, IngestInput{
		TriggerName: "outage",
		Severity:    "critical",
		EventID:     "evt-1",
	})
	require.NoError(t, err)

	ticket, err := env.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, ticket.SLADeadline)
	// critical resolves in 120 minutes per the vendor fixture
	assert.Equal(t, env.clock.Now().Add(120*time.Minute), *ticket.SLADeadline)
}

func TestIngestMissingFieldsNeverFail(t *testing.T) {
	env := newTestEnv(t)
	env.addIntegration(t, "int-1", "generic", domain.TicketStatusOpen)
	svc := env.newIngestionService()

	id, err := svc.Ingest(context.Background(), "generic", testToken, IngestInput{})
	require.NoError(t, err)

	ticket, err := env.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "unspecified incident", ticket.Title)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.NotEmpty(t, ticket.ExternalID, "external id is synthesized when absent")
}

func TestIngestRejectsUnknownCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusOpen)
	svc := env.newIngestionService()

	cases := []struct {
		name     string
		provider string
		token    string
	}{
		{"wrong token", "zabbix", "not-the-token"},
		{"unknown provider", "jira", testToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tc.provider, tc.token, IngestInput{Summary: "x"})
			require.Error(t, err)
			de := apperrors.ToDomainError(err)
			assert.Equal(t, "UNAUTHORIZED", de.Code)
		})
	}

	tickets, err := env.tickets.ListWithFilter(context.Background(), ticketFilterAll())
	require.NoError(t, err)
	assert.Empty(t, tickets, "failed ingestion must not create tickets")
}

func TestIngestRejectsAmbiguousCredentials(t *testing.T) {
	env := newTestEnv(t)
	// two active integrations sharing the same provider+token
	env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusOpen)
	env.addIntegration(t, "int-2", "zabbix", domain.TicketStatusInProgress)
	svc := env.newIngestionService()

	_, err := svc.Ingest(context.Background(), "zabbix", testToken, IngestInput{Summary: "x"})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestIngestDuplicateDeliveryIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusOpen)
	svc := env.newIngestionService()

	input := IngestInput{TriggerName: "flap", Severity: "med", EventID: "evt-7"}
	first, err := svc.Ingest(context.Background(), "zabbix", testToken, input)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "zabbix", testToken, input)
	require.NoError(t, err)
	assert.Equal(t, first, second, "retried delivery resolves to the existing ticket")

	tickets, err := env.tickets.ListWithFilter(context.Background(), ticketFilterAll())
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestIngestUpdatesConnectorLastSync(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addIntegration(t, "int-1", "zabbix", domain.TicketStatusOpen)
	require.Nil(t, rec.LastSyncAt)
	svc := env.newIngestionService()

	_, err := svc.Ingest(context.Background(), "zabbix", testToken, IngestInput{Summary: "x", EventID: "evt-9"})
	require.NoError(t, err)

	refreshed, err := env.integrations.ListActiveByProvider(context.Background(), "zabbix")
	require.NoError(t, err)
	require.Len(t, refreshed, 1)
	assert.NotNil(t, refreshed[0].LastSyncAt)

	ingested := env.recorded.ofType(events.EventTicketIngested)
	require.Len(t, ingested, 1)
}
