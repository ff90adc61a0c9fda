package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legalwatchdog/platform/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.BillingStatus
		to   models.BillingStatus
		want bool
	}{
		{"trial converts", models.BillingTrialing, models.BillingActive, true},
		{"trial cancelled", models.BillingTrialing, models.BillingCancelled, true},
		{"active falls past due", models.BillingActive, models.BillingPastDue, true},
		{"past due recovers", models.BillingPastDue, models.BillingActive, true},
		{"past due escalates", models.BillingPastDue, models.BillingUnpaid, true},
		{"unpaid recovers", models.BillingUnpaid, models.BillingActive, true},
		{"cancelled reactivates", models.BillingCancelled, models.BillingActive, true},
		{"blocked reactivates", models.BillingBlocked, models.BillingActive, true},
		{"no-op is allowed", models.BillingActive, models.BillingActive, true},

		// A replayed provider callback must not move an account backwards.
		{"active back to trial", models.BillingActive, models.BillingTrialing, false},
		{"blocked to past due", models.BillingBlocked, models.BillingPastDue, false},
		{"blocked to trialing", models.BillingBlocked, models.BillingTrialing, false},
		{"cancelled to unpaid", models.BillingCancelled, models.BillingUnpaid, false},
		{"unknown status", models.BillingStatus("gold"), models.BillingActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

// Every status can be blocked except the two terminal-ish ones that must go
// through active first.
func TestEveryOperableStatusCanBeBlocked(t *testing.T) {
	for _, from := range []models.BillingStatus{
		models.BillingTrialing, models.BillingActive, models.BillingPastDue, models.BillingUnpaid,
	} {
		assert.True(t, CanTransition(from, models.BillingBlocked), "from %s", from)
	}
	assert.False(t, CanTransition(models.BillingCancelled, models.BillingBlocked))
}
