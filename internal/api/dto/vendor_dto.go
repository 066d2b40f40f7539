package dto

import "github.com/spec-kit/incident-platform/internal/domain"

// VendorColumnsResponse is the board column set for a vendor.
type VendorColumnsResponse struct {
	VendorID string                `json:"vendor_id"`
	Columns  []domain.TicketStatus `json:"columns"`
}

// VendorSummary is one row of the administrative vendor listing.
type VendorSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

// NewVendorSummary maps a domain vendor to its listing shape.
func NewVendorSummary(v domain.Vendor) VendorSummary {
	return VendorSummary{
		ID:       v.ID,
		Name:     v.Name,
		Category: v.Category,
		Contact:  v.Contact,
	}
}
