package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/incident-platform/internal/domain"
)

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		name     string
		severity string
		want     domain.TicketPriority
	}{
		{"numbered high severity", "Severity 1 - High", domain.TicketPriorityCritical},
		{"critical keyword", "CRITICAL outage", domain.TicketPriorityCritical},
		{"high keyword", "high", domain.TicketPriorityCritical},
		{"sev2 shorthand", "sev2", domain.TicketPriorityMedium},
		{"medium keyword", "Medium", domain.TicketPriorityMedium},
		{"informational", "informational", domain.TicketPriorityLow},
		{"empty token", "", domain.TicketPriorityLow},
		{"whitespace only", "   ", domain.TicketPriorityLow},
		{"unknown vocabulary", "p5-negligible", domain.TicketPriorityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePriority("zabbix", tc.severity))
		})
	}
}

func TestNormalizePriorityNeverFails(t *testing.T) {
	// permissive by design: arbitrary garbage still yields a priority
	for _, token := range []string{"☃", "0", "null", "undefined", "-999"} {
		got := NormalizePriority("unknown-vendor", token)
		assert.NotEmpty(t, got)
	}
}
