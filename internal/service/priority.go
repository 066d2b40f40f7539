package service

import (
	"strings"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// NormalizePriority maps a provider's free-form severity vocabulary onto the
// canonical priority levels. It is deliberately permissive: an unknown vendor
// vocabulary degrades to low instead of failing ingestion, so there is no
// error path.
//
// Matching is case-insensitive substring classification, checked in
// descending severity: tokens containing "crit", "1" or "high" are critical;
// tokens containing "med" or "2" are medium; everything else, including the
// empty token, is low.
func NormalizePriority(provider, severity string) domain.TicketPriority {
	token := strings.ToLower(strings.TrimSpace(severity))
	switch {
	case token == "":
		return domain.TicketPriorityLow
	case strings.Contains(token, "crit"),
		strings.Contains(token, "1"),
		strings.Contains(token, "high"):
		return domain.TicketPriorityCritical
	case strings.Contains(token, "med"),
		strings.Contains(token, "2"):
		return domain.TicketPriorityMedium
	default:
		return domain.TicketPriorityLow
	}
}
