package repository

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// EscalationStateRepository remembers which thresholds have already been
// notified for a ticket, so repeated evaluation never re-emits the same
// alert.
type EscalationStateRepository interface {
	// MarkNotified records the threshold and reports whether this call was
	// the first to do so.
	MarkNotified(ctx context.Context, ticketID, threshold string) (bool, error)
}

type redisEscalationState struct {
	client *redis.Client
}

// NewRedisEscalationState persists notified thresholds in Redis. SETNX gives
// the first-writer-wins semantics concurrent sweeps need.
func NewRedisEscalationState(client *redis.Client) EscalationStateRepository {
	return &redisEscalationState{client: client}
}

func (r *redisEscalationState) MarkNotified(ctx context.Context, ticketID, threshold string) (bool, error) {
	key := "sla:notified:" + ticketID + ":" + threshold
	return r.client.SetNX(ctx, key, "1", 0).Result()
}

type memoryEscalationState struct {
	mu       sync.Mutex
	notified map[string]struct{}
}

// NewMemoryEscalationState keeps notified thresholds in process memory.
func NewMemoryEscalationState() EscalationStateRepository {
	return &memoryEscalationState{notified: make(map[string]struct{})}
}

func (m *memoryEscalationState) MarkNotified(_ context.Context, ticketID, threshold string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ticketID + ":" + threshold
	if _, seen := m.notified[key]; seen {
		return false, nil
	}
	m.notified[key] = struct{}{}
	return true, nil
}
