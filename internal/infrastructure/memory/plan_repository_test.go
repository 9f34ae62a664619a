package memory

import (
	"context"
	"testing"
	"time"

	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRepositoryRoundTrip(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()

	p := &domplan.Plan{
		PlanID:     "plan_abc",
		TotalCents: 14000,
		Installments: []domplan.Installment{
			{Sequence: 1, Amount: 4668, DueDate: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)},
			{Sequence: 2, Amount: 4666, DueDate: time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)},
			{Sequence: 3, Amount: 4666, DueDate: time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "plan_abc")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Mutating the returned plan must not affect the stored copy.
	got.Installments[0].Amount = 1
	again, err := repo.Get(ctx, "plan_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(4668), again.Installments[0].Amount)
}

func TestPlanRepositoryUnknownID(t *testing.T) {
	repo := NewPlanRepository()

	_, err := repo.Get(context.Background(), "plan_missing")
	assert.ErrorIs(t, err, domplan.ErrNotFound)
}
