package domain

// OperatorRole differentiates operator token capabilities.
type OperatorRole string

const (
	OperatorRoleAgent OperatorRole = "AGENT"
	OperatorRoleAdmin OperatorRole = "ADMIN"
)

// Operator identifies the human behind a board action. The identity provider
// is external; this core only carries the attribution.
type Operator struct {
	ID       string
	TenantID string
	Role     OperatorRole
}
