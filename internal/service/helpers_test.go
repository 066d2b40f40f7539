package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/auth"
	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/feed"
	"github.com/spec-kit/incident-platform/internal/repository"
)

const (
	testTenant = "tenant-1"
	testVendor = "vendor-1"
	testToken  = "connector-secret"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, e := range r.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

type testEnv struct {
	tickets      *repository.MemoryTicketRepository
	vendors      *repository.MemoryVendorRepository
	integrations *repository.MemoryIntegrationRepository
	state        repository.EscalationStateRepository
	dispatcher   events.Dispatcher
	feed         *feed.MemoryFeed
	policy       *PolicyRegistry
	recorded     *recordedEvents
	clock        *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tickets:      repository.NewMemoryTicketRepository(),
		vendors:      repository.NewMemoryVendorRepository(),
		integrations: repository.NewMemoryIntegrationRepository(),
		state:        repository.NewMemoryEscalationState(),
		dispatcher:   events.NewInMemoryDispatcher(),
		feed:         feed.NewMemoryFeed(),
		recorded:     &recordedEvents{},
		clock:        newFakeClock(time.Now()),
	}
	env.policy = NewPolicyRegistry(env.vendors)

	for _, et := range []events.EventType{
		events.EventTicketIngested,
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventSLAThresholdCrossed,
		events.EventIntegrationSyncError,
	} {
		env.dispatcher.Subscribe(et, env.recorded.record)
	}

	env.vendors.Put(&domain.Vendor{
		ID:       testVendor,
		TenantID: testTenant,
		Name:     "Acme Resolution Partners",
		Active:   true,
		SLATable: map[domain.TicketPriority]domain.SLARule{
			domain.TicketPriorityCritical: {ResponseTime: 30, ResolutionTime: 120},
			domain.TicketPriorityMedium:   {ResponseTime: 120, ResolutionTime: 480},
		},
	})
	return env
}

func (env *testEnv) addIntegration(t *testing.T, id, provider string, queue domain.TicketStatus) *domain.Integration {
	t.Helper()
	digest, err := auth.HashConnectorToken(testToken, 4)
	if err != nil {
		t.Fatalf("hash connector token: %v", err)
	}
	rec := &domain.Integration{
		ID:          id,
		TenantID:    testTenant,
		VendorID:    testVendor,
		Provider:    provider,
		TokenDigest: digest,
		TargetQueue: queue,
		Active:      true,
	}
	env.integrations.Put(rec)
	return rec
}

func (env *testEnv) newEscalationService() *EscalationService {
	return NewEscalationService(EscalationDependencies{
		TicketRepo: env.tickets,
		Policy:     env.policy,
		State:      env.state,
		Dispatcher: env.dispatcher,
		Feed:       env.feed,
		Logger:     zap.NewNop(),
		Now:        env.clock.Now,
	})
}

func (env *testEnv) newTicketService(escalation *EscalationService) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: env.tickets,
		Policy:     env.policy,
		Escalation: escalation,
		Dispatcher: env.dispatcher,
		Feed:       env.feed,
		Logger:     zap.NewNop(),
	})
}

func (env *testEnv) newIngestionService() *IngestionService {
	svc := NewIngestionService(IngestionDependencies{
		TicketRepo:      env.tickets,
		IntegrationRepo: env.integrations,
		Policy:          env.policy,
		Dispatcher:      env.dispatcher,
		Feed:            env.feed,
		Logger:          zap.NewNop(),
	})
	svc.now = env.clock.Now
	return svc
}

func ticketFilterAll() repository.TicketFilter {
	return repository.TicketFilter{Limit: 100}
}
