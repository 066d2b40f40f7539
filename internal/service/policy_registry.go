package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/repository"
)

// PolicyRegistry is the read-only lookup surface over vendor workflow
// policy: board columns and SLA budgets. Mutation happens on an external
// administrative surface; this core only reads.
type PolicyRegistry struct {
	vendors repository.VendorRepository
}

// NewPolicyRegistry constructs the registry.
func NewPolicyRegistry(vendors repository.VendorRepository) *PolicyRegistry {
	return &PolicyRegistry{vendors: vendors}
}

// VendorByID resolves a vendor record.
func (p *PolicyRegistry) VendorByID(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	return p.vendors.GetByID(ctx, vendorID)
}

// ActiveVendors lists the tenant's active vendors for the administrative
// board surface.
func (p *PolicyRegistry) ActiveVendors(ctx context.Context, tenantID string) ([]domain.Vendor, error) {
	return p.vendors.ListActive(ctx, tenantID)
}

// ColumnsFor returns the vendor's ordered board columns, or the default set
// when the vendor is unknown or has no custom configuration.
func (p *PolicyRegistry) ColumnsFor(ctx context.Context, vendorID string) ([]domain.TicketStatus, error) {
	if vendorID == "" {
		return domain.DefaultColumns, nil
	}
	vendor, err := p.vendors.GetByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultColumns, nil
		}
		return nil, err
	}
	return vendor.Columns(), nil
}

// SlaRuleFor returns the SLA budgets for (vendor, priority). The second
// return is false when no rule applies, which callers treat as "no
// escalation possible", not as an error.
func (p *PolicyRegistry) SlaRuleFor(ctx context.Context, vendorID string, priority domain.TicketPriority) (domain.SLARule, bool, error) {
	if vendorID == "" {
		return domain.SLARule{}, false, nil
	}
	vendor, err := p.vendors.GetByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SLARule{}, false, nil
		}
		return domain.SLARule{}, false, err
	}
	rule, ok := vendor.SLARuleFor(priority)
	return rule, ok, nil
}
