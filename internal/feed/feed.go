package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// Publisher pushes a full ticket snapshot after each atomic mutation.
// Watchers therefore always observe complete states, never partial ones;
// per-ticket ordering is preserved by publishing from inside the mutating
// call path.
type Publisher interface {
	PublishTicket(ctx context.Context, ticket *domain.Ticket) error
}

// Filter narrows a watch to the tickets a dashboard cares about.
type Filter struct {
	CustomerName string
	Statuses     []domain.TicketStatus
}

func (f Filter) matches(t *domain.Ticket) bool {
	if f.CustomerName != "" && t.CustomerName != f.CustomerName {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == t.Status {
			return true
		}
	}
	return false
}

func channelFor(tenantID string) string {
	return "tickets." + tenantID
}

// RedisFeed carries ticket snapshots over Redis pub/sub, one channel per
// tenant.
type RedisFeed struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisFeed wraps a redis client as a change feed.
func NewRedisFeed(client *redis.Client, logger *zap.Logger) *RedisFeed {
	return &RedisFeed{client: client, logger: logger}
}

// PublishTicket broadcasts the snapshot to the tenant's channel. Publish
// failures are surfaced so the caller can log them; they never block the
// mutation that produced the snapshot.
func (f *RedisFeed) PublishTicket(ctx context.Context, ticket *domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channelFor(ticket.TenantID), data).Err()
}

// Watch subscribes to a tenant's snapshots until ctx is cancelled. Snapshots
// failing the filter are dropped; undecodable messages are logged and
// skipped.
func (f *RedisFeed) Watch(ctx context.Context, tenantID string, filter Filter) (<-chan domain.Ticket, error) {
	sub := f.client.Subscribe(ctx, channelFor(tenantID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan domain.Ticket, 16)
	go func() {
		defer close(out)
		defer sub.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ticket domain.Ticket
				if err := json.Unmarshal([]byte(msg.Payload), &ticket); err != nil {
					f.logger.Warn("undecodable feed message", zap.Error(err))
					continue
				}
				if !filter.matches(&ticket) {
					continue
				}
				select {
				case out <- ticket:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryFeed is an in-process feed for tests and DSN-less development runs.
type MemoryFeed struct {
	mu       sync.Mutex
	watchers map[string][]memoryWatcher
}

type memoryWatcher struct {
	ch     chan domain.Ticket
	filter Filter
	ctx    context.Context
}

// NewMemoryFeed builds an empty in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{watchers: make(map[string][]memoryWatcher)}
}

func (f *MemoryFeed) PublishTicket(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range f.watchers[ticket.TenantID] {
		if !w.filter.matches(ticket) {
			continue
		}
		select {
		case w.ch <- *ticket:
		case <-w.ctx.Done():
		}
	}
	return nil
}

func (f *MemoryFeed) Watch(ctx context.Context, tenantID string, filter Filter) (<-chan domain.Ticket, error) {
	ch := make(chan domain.Ticket, 16)
	f.mu.Lock()
	f.watchers[tenantID] = append(f.watchers[tenantID], memoryWatcher{ch: ch, filter: filter, ctx: ctx})
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.watchers[tenantID][:0]
		for _, w := range f.watchers[tenantID] {
			if w.ch != ch {
				kept = append(kept, w)
			}
		}
		f.watchers[tenantID] = kept
		close(ch)
	}()
	return ch, nil
}
