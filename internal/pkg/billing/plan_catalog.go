package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const activePlansCacheKey = "billing:plans:active"

// PlanCatalog serves the active plan list, cached in Redis when a client is
// configured. Cache failures fall through to the database.
type PlanCatalog struct {
	plans  repository.PlanRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPlanCatalog(plans repository.PlanRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *PlanCatalog {
	return &PlanCatalog{plans: plans, rdb: rdb, ttl: ttl, logger: orNop(logger)}
}

// ActivePlans returns all active plans.
func (c *PlanCatalog) ActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	if c.rdb != nil && c.ttl > 0 {
		raw, err := c.rdb.Get(ctx, activePlansCacheKey).Bytes()
		switch {
		case err == nil:
			var plans []models.SubscriptionPlan
			if err := json.Unmarshal(raw, &plans); err == nil {
				return plans, nil
			}
			c.logger.Warn("discarding undecodable plan cache entry")
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("plan cache read failed", zap.Error(err))
		}
	}

	plans, err := c.plans.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil && c.ttl > 0 {
		if raw, err := json.Marshal(plans); err == nil {
			if err := c.rdb.Set(ctx, activePlansCacheKey, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("plan cache write failed", zap.Error(err))
			}
		}
	}
	return plans, nil
}

// Invalidate drops the cached plan list.
func (c *PlanCatalog) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, activePlansCacheKey).Err()
}
