package entitlements

import (
	"strings"

	"github.com/ManuelReschke/freelancedesk/app/models"
)

// Unlimited is returned by Limit when a plan sets no cap for a resource.
const Unlimited = -1

// Resource types that plans may cap in their usage limits.
const (
	ResourceClients   = "clients"
	ResourceProjects  = "projects"
	ResourceProposals = "proposals"
	ResourceInvoices  = "invoices"
)

// Current returns the subscription that gates features for a user: the most
// recently created row, whatever its status. Rows created in the same instant
// prefer a non-canceled row, since a fallback row is always written after the
// one it replaces. It returns nil for no rows.
func Current(subs []models.Subscription) *models.Subscription {
	var current *models.Subscription
	for i := range subs {
		if current == nil || newer(&subs[i], current) {
			current = &subs[i]
		}
	}
	return current
}

func newer(a, b *models.Subscription) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return b.IsCanceled() && !a.IsCanceled()
}

// IsEntitling reports whether a subscription status grants plan features.
func IsEntitling(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// Limit returns the plan's cap for resource, or Unlimited when none is set.
func Limit(plan *models.SubscriptionPlan, resource string) int {
	if plan == nil {
		return 0
	}
	if n, ok := plan.UsageLimit(resource); ok && n >= 0 {
		return n
	}
	return Unlimited
}

// Limits returns the caps for all known resource types.
func Limits(plan *models.SubscriptionPlan) map[string]int {
	out := make(map[string]int, 4)
	for _, r := range []string{ResourceClients, ResourceProjects, ResourceProposals, ResourceInvoices} {
		out[r] = Limit(plan, r)
	}
	return out
}
