package billing

import (
	"strings"

	"github.com/ManuelReschke/freelancedesk/app/models"
)

// BillingCycleFromInterval maps a provider recurring interval to a local
// billing cycle. Only "year" is annual; anything else, including an empty
// interval, is monthly.
func BillingCycleFromInterval(interval string) string {
	if interval == "year" {
		return models.BillingCycleAnnually
	}
	return models.BillingCycleMonthly
}

// intervalForCycle is the inverse used when creating checkout sessions.
func intervalForCycle(cycle string) string {
	if cycle == models.BillingCycleAnnually {
		return "year"
	}
	return "month"
}

func normalizeCycle(cycle string) string {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case models.BillingCycleAnnually:
		return models.BillingCycleAnnually
	case models.BillingCycleMonthly:
		return models.BillingCycleMonthly
	default:
		return ""
	}
}

// leadingWord returns the first whitespace-separated word of a product name.
func leadingWord(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
