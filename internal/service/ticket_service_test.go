package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-platform/internal/domain"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

func (env *testEnv) createTicket(t *testing.T, svc *TicketService) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateManual(context.Background(),
		&domain.Operator{ID: "op-1", TenantID: testTenant, Role: domain.OperatorRoleAgent},
		ManualTicketInput{
			VendorID:     testVendor,
			Title:        "database unreachable",
			Priority:     domain.TicketPriorityCritical,
			CustomerName: "Initech",
		})
	require.NoError(t, err)
	return ticket
}

func TestTransitionAppendsAuditAtomically(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTicketService(nil)
	ticket := env.createTicket(t, svc)

	moves := []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusWaitingCustomer,
		domain.TicketStatusResolved,
	}
	for _, status := range moves {
		_, err := svc.Transition(context.Background(), ticket.ID, status, "triaged and moved", "op-1")
		require.NoError(t, err)
	}

	final, err := svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, final.Status)
	// one creation entry plus one per transition
	require.Len(t, final.AuditTrail, 1+len(moves))
	assert.Equal(t, "BOARD_MOVE_RESOLVED", final.AuditTrail[3].Kind)
	assert.Equal(t, "op-1", final.AuditTrail[3].Actor)
}

func TestTransitionRejectsShortJustification(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTicketService(nil)
	ticket := env.createTicket(t, svc)

	// "искр" is 4 runes but 8 bytes; the floor counts characters
	for _, note := range []string{"", "fix", "done", "искр"} {
		_, err := svc.Transition(context.Background(), ticket.ID, domain.TicketStatusInProgress, note, "op-1")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	}

	unchanged, err := svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, unchanged.Status)
	assert.Len(t, unchanged.AuditTrail, 1, "rejected transitions leave the trail untouched")

	// a 5-rune multibyte note clears the floor
	_, err = svc.Transition(context.Background(), ticket.ID, domain.TicketStatusInProgress, "готов", "op-1")
	require.NoError(t, err)
}

func TestTransitionAllowsReopening(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTicketService(nil)
	ticket := env.createTicket(t, svc)

	_, err := svc.Transition(context.Background(), ticket.ID, domain.TicketStatusResolved, "root cause fixed", "op-1")
	require.NoError(t, err)
	// tickets bounce back from resolved in real triage practice
	reopened, err := svc.Transition(context.Background(), ticket.ID, domain.TicketStatusInProgress, "issue recurred", "op-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Status)
}

func TestTransitionRejectsUnconfiguredColumn(t *testing.T) {
	env := newTestEnv(t)
	env.vendors.Put(&domain.Vendor{
		ID:       "vendor-lean",
		TenantID: testTenant,
		Name:     "Lean Vendor",
		Active:   true,
		CustomColumns: []domain.TicketStatus{
			domain.TicketStatusOpen,
			domain.TicketStatusInProgress,
		},
	})
	svc := env.newTicketService(nil)
	ticket, err := svc.CreateManual(context.Background(),
		&domain.Operator{ID: "op-1", TenantID: testTenant},
		ManualTicketInput{VendorID: "vendor-lean", Title: "printer on fire"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), ticket.ID, domain.TicketStatusWaitingCustomer, "park until callback", "op-1")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	// terminal states stay reachable even for lean column sets
	_, err = svc.Transition(context.Background(), ticket.ID, domain.TicketStatusClosed, "duplicate of INC-1", "op-1")
	require.NoError(t, err)
}

func TestTransitionUnknownTicket(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTicketService(nil)

	_, err := svc.Transition(context.Background(), "no-such-id", domain.TicketStatusClosed, "cleanup pass", "op-1")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestConcurrentTransitionsKeepTrailConsistent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTicketService(nil)
	ticket := env.createTicket(t, svc)

	statuses := []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusWaitingCustomer,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	}

	var wg sync.WaitGroup
	successes := make([]bool, len(statuses))
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status domain.TicketStatus) {
			defer wg.Done()
			if _, err := svc.Transition(context.Background(), ticket.ID, status, "concurrent board move", "op-1"); err == nil {
				successes[i] = true
			}
		}(i, status)
	}
	wg.Wait()

	final, err := svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)

	applied := 0
	for _, ok := range successes {
		if ok {
			applied++
		}
	}
	require.GreaterOrEqual(t, applied, 1)
	// status never reflects a transition whose audit entry is missing
	assert.Len(t, final.AuditTrail, 1+applied)
	assert.Equal(t, domain.AuditKindBoardMovePrefix+strings.ToUpper(string(final.Status)), final.AuditTrail[len(final.AuditTrail)-1].Kind)
}
