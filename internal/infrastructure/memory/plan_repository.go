package memory

import (
	"context"
	"sync"

	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
)

// PlanRepository keeps issued installment plans in memory for auditability.
// Plans are immutable once issued; the repository stores and returns clones
// so callers cannot mutate shared state.
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*domplan.Plan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		plans: make(map[string]*domplan.Plan),
	}
}

func (r *PlanRepository) Save(ctx context.Context, p *domplan.Plan) error {
	_ = ctx
	if p == nil || p.PlanID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[p.PlanID] = clonePlan(p)
	return nil
}

func (r *PlanRepository) Get(ctx context.Context, planID string) (*domplan.Plan, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[planID]
	if !ok {
		return nil, domplan.ErrNotFound
	}
	return clonePlan(p), nil
}

func clonePlan(p *domplan.Plan) *domplan.Plan {
	clone := *p
	clone.Installments = append([]domplan.Installment(nil), p.Installments...)
	return &clone
}
