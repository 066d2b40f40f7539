package domain

import "time"

// SystemPrincipal attributes audit entries written by the platform itself
// (ingestion, automated escalation) rather than a human operator.
const SystemPrincipal = "system@platform"

// Audit entry kinds. BOARD_MOVE entries are suffixed with the upper-cased
// target status, e.g. BOARD_MOVE_IN_PROGRESS.
const (
	AuditKindExternalIngestion = "EXTERNAL_INGESTION"
	AuditKindManualCreation    = "MANUAL_CREATION"
	AuditKindSLAEscalation     = "SLA_ESCALATION"
	AuditKindBoardMovePrefix   = "BOARD_MOVE_"
)

// MinJustificationLen is the shortest note accepted on an operator-initiated
// transition. A 4-character note is rejected; 5 is the floor.
const MinJustificationLen = 5

// AuditEntry is one immutable element of a ticket's trail. Entries are never
// edited or removed once appended.
type AuditEntry struct {
	ID        string
	TicketID  string
	Kind      string
	Note      string
	Actor     string
	CreatedAt time.Time
}

// IsSystemActor reports whether the entry was written by the platform.
func (e AuditEntry) IsSystemActor() bool {
	return e.Actor == SystemPrincipal
}
