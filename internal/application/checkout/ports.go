package checkout

import (
	"context"
	"time"

	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
)

// IDGenerator issues a fresh unique identifier for each accepted plan.
// Injected so tests can use deterministic IDs.
type IDGenerator interface {
	NewID() string
}

// Clock supplies the purchase time. Injected so schedules are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// PlanStore records issued plans for auditability.
type PlanStore interface {
	Save(ctx context.Context, p *domplan.Plan) error
	Get(ctx context.Context, planID string) (*domplan.Plan, error)
}
