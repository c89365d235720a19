package billing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MetadataPlanID is the metadata key carrying an explicit local plan id.
const MetadataPlanID = "plan_id"

// MetadataBillingCycle is the metadata key carrying the requested billing cycle.
const MetadataBillingCycle = "billing_cycle"

// PlanMatcher resolves the local plan for a provider subscription.
type PlanMatcher struct {
	catalog  *PlanCatalog
	provider Provider
	logger   *zap.Logger
}

func NewPlanMatcher(catalog *PlanCatalog, provider Provider, logger *zap.Logger) *PlanMatcher {
	return &PlanMatcher{catalog: catalog, provider: provider, logger: orNop(logger)}
}

// Match returns the plan id from metadata if present. Otherwise it compares
// the leading word of the product's name with the names of active plans
// (exact, case-sensitive). No match yields ErrPlanResolutionFailed.
func (m *PlanMatcher) Match(ctx context.Context, metadata map[string]string, productID string) (string, error) {
	if planID := strings.TrimSpace(metadata[MetadataPlanID]); planID != "" {
		return planID, nil
	}
	if productID == "" {
		return "", fmt.Errorf("%w: no plan metadata and no product", ErrPlanResolutionFailed)
	}

	product, err := m.provider.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	word := leadingWord(product.Name)
	if word == "" {
		return "", fmt.Errorf("%w: product %s has no name", ErrPlanResolutionFailed, productID)
	}

	plans, err := m.catalog.ActivePlans(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range plans {
		if p.Name == word {
			m.logger.Debug("matched plan by product name",
				zap.String("product_id", productID), zap.String("plan_id", p.ID))
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no active plan named %q", ErrPlanResolutionFailed, word)
}
