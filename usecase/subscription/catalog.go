package subscription

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/storefront/domain"
)

// PlanCatalog resolves plans by id. repository.PlanRepository satisfies it.
type PlanCatalog interface {
	Get(ctx context.Context, id string) (domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
}

// StaticCatalog is an in-memory catalog used when no database is configured.
type StaticCatalog struct {
	mu    sync.RWMutex
	plans map[string]domain.Plan
}

func NewStaticCatalog(plans ...domain.Plan) *StaticCatalog {
	c := &StaticCatalog{plans: make(map[string]domain.Plan, len(plans))}
	for _, p := range plans {
		c.plans[p.ID()] = p
	}
	return c
}

func (c *StaticCatalog) Get(_ context.Context, id string) (domain.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan, ok := c.plans[id]
	if !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (c *StaticCatalog) List(_ context.Context) ([]domain.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Save adds or replaces a plan.
func (c *StaticCatalog) Save(_ context.Context, plan domain.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[plan.ID()] = plan
	return nil
}
