package domain

// SLARule is one row of a vendor's SLA table: budgets in minutes for a
// single priority tier.
type SLARule struct {
	ResponseTime   int
	ResolutionTime int
}

// Vendor is a resolution partner owning a tenant-scoped workflow policy.
// Read-only from this core; managed by tenant administrators.
type Vendor struct {
	ID            string
	TenantID      string
	Name          string
	Category      string
	Contact       string
	Active        bool
	SLATable      map[TicketPriority]SLARule
	CustomColumns []TicketStatus
}

// Columns returns the vendor's configured board columns, falling back to the
// default set when no custom columns are configured.
func (v *Vendor) Columns() []TicketStatus {
	if v == nil || len(v.CustomColumns) == 0 {
		return DefaultColumns
	}
	return v.CustomColumns
}

// SLARuleFor returns the rule for a priority, if the vendor's table has one.
func (v *Vendor) SLARuleFor(priority TicketPriority) (SLARule, bool) {
	if v == nil || v.SLATable == nil {
		return SLARule{}, false
	}
	rule, ok := v.SLATable[priority]
	return rule, ok
}
