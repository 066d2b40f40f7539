package domain

import "time"

// Integration is a configured connector: an external system's credential
// plus routing policy. A ticket can only be ingested for a provider+token
// pair resolving to exactly one active record.
type Integration struct {
	ID          string
	TenantID    string
	VendorID    string
	Provider    string
	TokenDigest string
	TargetQueue TicketStatus
	Active      bool
	LastSyncAt  *time.Time
	CreatedAt   time.Time
}
