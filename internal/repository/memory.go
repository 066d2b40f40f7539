package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// In-memory implementations of the store interfaces, used by tests and by
// DSN-less development runs. Semantics mirror the postgres implementations:
// create/transition are atomic with their audit entries and transitions use
// compare-and-swap on updated_at.

type MemoryTicketRepository struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	byExt   map[string]string
}

// NewMemoryTicketRepository builds an empty in-memory ticket store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		byExt:   make(map[string]string),
	}
}

func extKey(tenantID string, source domain.TicketSource, externalID string) string {
	return tenantID + "|" + string(source) + "|" + externalID
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticket.ExternalID != "" {
		if _, exists := r.byExt[extKey(ticket.TenantID, ticket.Source, ticket.ExternalID)]; exists {
			return ErrDuplicateExternalID
		}
	}

	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	entry.ID = uuid.NewString()
	entry.TicketID = ticket.ID
	entry.CreatedAt = now
	ticket.AuditTrail = []domain.AuditEntry{*entry}

	stored := cloneTicket(ticket)
	r.tickets[ticket.ID] = stored
	if ticket.ExternalID != "" {
		r.byExt[extKey(ticket.TenantID, ticket.Source, ticket.ExternalID)] = ticket.ID
	}
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(stored), nil
}

func (r *MemoryTicketRepository) GetByExternalID(_ context.Context, tenantID string, source domain.TicketSource, externalID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byExt[extKey(tenantID, source, externalID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(r.tickets[id]), nil
}

func (r *MemoryTicketRepository) ApplyTransition(_ context.Context, id string, expectedUpdatedAt time.Time, newStatus domain.TicketStatus, entry *domain.AuditEntry) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, ErrStaleTicket
	}

	now := time.Now()
	if !now.After(stored.UpdatedAt) {
		// wall clocks are coarse; CAS needs a strictly advancing version
		now = stored.UpdatedAt.Add(time.Nanosecond)
	}
	stored.Status = newStatus
	stored.UpdatedAt = now

	entry.ID = uuid.NewString()
	entry.TicketID = id
	entry.CreatedAt = now
	stored.AuditTrail = append(stored.AuditTrail, *entry)

	return cloneTicket(stored), nil
}

func (r *MemoryTicketRepository) AppendAudit(_ context.Context, id string, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	entry.ID = uuid.NewString()
	entry.TicketID = id
	entry.CreatedAt = time.Now()
	stored.AuditTrail = append(stored.AuditTrail, *entry)
	return nil
}

func (r *MemoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Ticket
	for _, stored := range r.tickets {
		if !matchesFilter(stored, filter) {
			continue
		}
		result = append(result, *cloneTicket(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryTicketRepository) ListUnresolved(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Ticket
	for _, stored := range r.tickets {
		if stored.Status.IsTerminal() {
			continue
		}
		result = append(result, *cloneTicket(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func matchesFilter(t *domain.Ticket, filter TicketFilter) bool {
	if filter.TenantID != nil && t.TenantID != *filter.TenantID {
		return false
	}
	if filter.CustomerName != nil && t.CustomerName != *filter.CustomerName {
		return false
	}
	if filter.VendorID != nil && t.VendorID != *filter.VendorID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
		return false
	}
	if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && t.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func containsStatus(set []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range set {
		if p == priority {
			return true
		}
	}
	return false
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.AuditTrail = append([]domain.AuditEntry(nil), t.AuditTrail...)
	if t.SLADeadline != nil {
		deadline := *t.SLADeadline
		clone.SLADeadline = &deadline
	}
	return &clone
}

// MemoryVendorRepository is a fixed vendor catalog for tests and development.
type MemoryVendorRepository struct {
	mu      sync.RWMutex
	vendors map[string]*domain.Vendor
}

// NewMemoryVendorRepository builds a vendor store seeded with the given records.
func NewMemoryVendorRepository(vendors ...*domain.Vendor) *MemoryVendorRepository {
	repo := &MemoryVendorRepository{vendors: make(map[string]*domain.Vendor)}
	for _, v := range vendors {
		repo.vendors[v.ID] = v
	}
	return repo
}

// Put registers or replaces a vendor record.
func (r *MemoryVendorRepository) Put(vendor *domain.Vendor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[vendor.ID] = vendor
}

func (r *MemoryVendorRepository) GetByID(_ context.Context, id string) (*domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vendor, ok := r.vendors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *vendor
	return &clone, nil
}

func (r *MemoryVendorRepository) ListActive(_ context.Context, tenantID string) ([]domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Vendor
	for _, vendor := range r.vendors {
		if vendor.Active && vendor.TenantID == tenantID {
			result = append(result, *vendor)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// MemoryIntegrationRepository is an in-memory connector registry.
type MemoryIntegrationRepository struct {
	mu           sync.Mutex
	integrations map[string]*domain.Integration
}

// NewMemoryIntegrationRepository builds a connector store seeded with the given records.
func NewMemoryIntegrationRepository(integrations ...*domain.Integration) *MemoryIntegrationRepository {
	repo := &MemoryIntegrationRepository{integrations: make(map[string]*domain.Integration)}
	for _, rec := range integrations {
		repo.integrations[rec.ID] = rec
	}
	return repo
}

// Put registers or replaces an integration record.
func (r *MemoryIntegrationRepository) Put(rec *domain.Integration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[rec.ID] = rec
}

func (r *MemoryIntegrationRepository) ListActiveByProvider(_ context.Context, provider string) ([]domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Integration
	for _, rec := range r.integrations {
		if rec.Active && rec.Provider == provider {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (r *MemoryIntegrationRepository) UpdateLastSync(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.integrations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	rec.LastSyncAt = &at
	return nil
}
