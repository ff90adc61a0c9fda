package middleware

import (
	"log/slog"
	"net/http"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/billing"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

// BillingGuard blocks feature routes when the organization's account is not
// in good standing. Runs after tenant resolution; billing management routes
// themselves are never behind it, otherwise a past-due account could not
// fix its own billing.
type BillingGuard struct {
	billing *billing.Service
	devMode bool
}

func NewBillingGuard(b *billing.Service, devMode bool) *BillingGuard {
	return &BillingGuard{billing: b, devMode: devMode}
}

func (g *BillingGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.devMode {
			next.ServeHTTP(w, r)
			return
		}

		access := tenant.AccessFromContext(r.Context())
		if access == nil {
			respond.Failure(w, http.StatusForbidden, "no organization context")
			return
		}

		account, err := g.billing.Account(r.Context(), access.OrganizationID)
		if err != nil {
			// Unknown account reads as not in good standing, not as a pass.
			slog.Error("billing lookup failed", "organization_id", access.OrganizationID, "error", err)
			respond.Failure(w, http.StatusPaymentRequired, "billing account is not in good standing")
			return
		}

		switch account.Status {
		case models.BillingTrialing, models.BillingActive:
			next.ServeHTTP(w, r)
		case models.BillingBlocked:
			respond.Failure(w, http.StatusForbidden, "organization is blocked; contact support")
		case models.BillingPastDue:
			respond.Failure(w, http.StatusPaymentRequired, "payment is past due; update your billing details")
		case models.BillingUnpaid:
			respond.Failure(w, http.StatusPaymentRequired, "account is unpaid; payment is required to continue")
		case models.BillingCancelled:
			respond.Failure(w, http.StatusPaymentRequired, "subscription is cancelled; reactivate to continue")
		default:
			respond.Failure(w, http.StatusPaymentRequired, "billing account is not in good standing")
		}
	})
}
