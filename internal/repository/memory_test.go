package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-platform/internal/domain"
)

func seedTicket(t *testing.T, r *MemoryTicketRepository, externalID string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		TenantID:   "tenant-1",
		VendorID:   "vendor-1",
		Title:      "disk space exhausted",
		Priority:   domain.TicketPriorityCritical,
		Status:     domain.TicketStatusOpen,
		Source:     domain.TicketSourceZabbix,
		ExternalID: externalID,
	}
	entry := &domain.AuditEntry{
		Kind:  domain.AuditKindExternalIngestion,
		Note:  "ingested from zabbix via connector int-1",
		Actor: domain.SystemPrincipal,
	}
	require.NoError(t, r.Create(context.Background(), ticket, entry))
	return ticket
}

func TestCreateStampsTicketAndTrail(t *testing.T) {
	r := NewMemoryTicketRepository()
	ticket := seedTicket(t, r, "ev-100")

	assert.NotEmpty(t, ticket.ID)
	assert.False(t, ticket.CreatedAt.IsZero())
	require.Len(t, ticket.AuditTrail, 1)
	assert.Equal(t, ticket.ID, ticket.AuditTrail[0].TicketID)

	byExt, err := r.GetByExternalID(context.Background(), "tenant-1", domain.TicketSourceZabbix, "ev-100")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, byExt.ID)
}

func TestCreateRejectsDuplicateExternalID(t *testing.T) {
	r := NewMemoryTicketRepository()
	seedTicket(t, r, "ev-100")

	dup := &domain.Ticket{
		TenantID:   "tenant-1",
		Title:      "disk space exhausted",
		Status:     domain.TicketStatusOpen,
		Source:     domain.TicketSourceZabbix,
		ExternalID: "ev-100",
	}
	err := r.Create(context.Background(), dup, &domain.AuditEntry{Kind: domain.AuditKindExternalIngestion})
	assert.ErrorIs(t, err, ErrDuplicateExternalID)

	// same external id under another tenant is a distinct ticket
	other := &domain.Ticket{
		TenantID:   "tenant-2",
		Title:      "disk space exhausted",
		Status:     domain.TicketStatusOpen,
		Source:     domain.TicketSourceZabbix,
		ExternalID: "ev-100",
	}
	assert.NoError(t, r.Create(context.Background(), other, &domain.AuditEntry{Kind: domain.AuditKindExternalIngestion}))
}

func TestApplyTransitionDetectsStaleVersion(t *testing.T) {
	r := NewMemoryTicketRepository()
	ticket := seedTicket(t, r, "")

	moved, err := r.ApplyTransition(context.Background(), ticket.ID, ticket.UpdatedAt,
		domain.TicketStatusInProgress, &domain.AuditEntry{Kind: "BOARD_MOVE_IN_PROGRESS", Actor: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, moved.Status)
	assert.True(t, moved.UpdatedAt.After(ticket.UpdatedAt))
	assert.Len(t, moved.AuditTrail, 2)

	// the original version stamp now loses the compare-and-swap
	_, err = r.ApplyTransition(context.Background(), ticket.ID, ticket.UpdatedAt,
		domain.TicketStatusClosed, &domain.AuditEntry{Kind: "BOARD_MOVE_CLOSED", Actor: "op-1"})
	assert.ErrorIs(t, err, ErrStaleTicket)

	current, err := r.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, current.Status)
	assert.Len(t, current.AuditTrail, 2)
}

func TestGetByIDReturnsIsolatedCopy(t *testing.T) {
	r := NewMemoryTicketRepository()
	ticket := seedTicket(t, r, "")

	first, err := r.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	first.Title = "mutated by caller"
	first.AuditTrail[0].Note = "mutated by caller"

	second, err := r.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "disk space exhausted", second.Title)
	assert.NotEqual(t, "mutated by caller", second.AuditTrail[0].Note)
}

func TestListUnresolvedSkipsTerminalStates(t *testing.T) {
	r := NewMemoryTicketRepository()
	open := seedTicket(t, r, "")
	resolved := seedTicket(t, r, "")
	_, err := r.ApplyTransition(context.Background(), resolved.ID, resolved.UpdatedAt,
		domain.TicketStatusResolved, &domain.AuditEntry{Kind: "BOARD_MOVE_RESOLVED", Actor: "op-1"})
	require.NoError(t, err)

	tickets, err := r.ListUnresolved(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, open.ID, tickets[0].ID)
}

func TestMissingRowsMapToNoRows(t *testing.T) {
	r := NewMemoryTicketRepository()
	_, err := r.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	vendors := NewMemoryVendorRepository()
	_, err = vendors.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestMemoryEscalationStateNotifiesOnce(t *testing.T) {
	state := NewMemoryEscalationState()

	first, err := state.MarkNotified(context.Background(), "tic-1", "SLA_AT_80_PERCENT")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := state.MarkNotified(context.Background(), "tic-1", "SLA_AT_80_PERCENT")
	require.NoError(t, err)
	assert.False(t, again)

	// other thresholds and other tickets are independent
	violation, err := state.MarkNotified(context.Background(), "tic-1", "SLA_VIOLATION")
	require.NoError(t, err)
	assert.True(t, violation)
	otherTicket, err := state.MarkNotified(context.Background(), "tic-2", "SLA_AT_80_PERCENT")
	require.NoError(t, err)
	assert.True(t, otherTicket)
}
