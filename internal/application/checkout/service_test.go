package checkout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

type sequenceIDs struct{ n atomic.Int64 }

func (g *sequenceIDs) NewID() string {
	return fmt.Sprintf("plan_test-%d", g.n.Add(1))
}

var testPurchaseTime = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, initialStock int) *Service {
	t.Helper()

	ledger, err := memory.NewStockLedger(initialStock)
	require.NoError(t, err)

	planner, err := domplan.NewPlanner([]domplan.Tier{
		{MinCents: 0, Count: 1},
		{MinCents: 10000, Count: 3},
	})
	require.NoError(t, err)

	return NewService(
		ledger,
		planner,
		memory.NewPlanRepository(),
		&sequenceIDs{},
		fixedClock{at: testPurchaseTime},
		nil,
		initialStock,
		nil,
	)
}

func TestCheckoutSuccess(t *testing.T) {
	svc := newTestService(t, 10)

	result, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: 14000})
	require.NoError(t, err)

	assert.Equal(t, domcheckout.StatusSuccess, result.Status)
	assert.Equal(t, "ok", result.Message)
	assert.NotEmpty(t, result.PlanID)
	require.NotNil(t, result.Plan)
	assert.Equal(t, result.PlanID, result.Plan.PlanID)

	var sum int64
	for _, inst := range result.Plan.Installments {
		sum += inst.Amount
	}
	assert.Equal(t, int64(14000), sum)
	assert.Equal(t, testPurchaseTime, result.Plan.Installments[0].DueDate)

	assert.Equal(t, 9, svc.Stock(context.Background()))
}

func TestCheckoutRecordsPlanForAudit(t *testing.T) {
	svc := newTestService(t, 10)

	result, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: 14000})
	require.NoError(t, err)

	stored, err := svc.Plan(context.Background(), result.PlanID)
	require.NoError(t, err)
	assert.Equal(t, result.Plan, stored)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	svc := newTestService(t, 0)

	result, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: 14000})
	require.NoError(t, err)

	assert.Equal(t, domcheckout.StatusFailed, result.Status)
	assert.Equal(t, "insufficient stock", result.Message)
	assert.Empty(t, result.PlanID)
	assert.Nil(t, result.Plan)
	assert.Equal(t, 0, svc.Stock(context.Background()))
}

func TestCheckoutRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, 10)

	for _, total := range []int64{0, -500} {
		result, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: total})
		require.NoError(t, err, "total=%d", total)

		assert.Equal(t, domcheckout.StatusFailed, result.Status, "total=%d", total)
		assert.Empty(t, result.PlanID, "total=%d", total)
		assert.Nil(t, result.Plan, "total=%d", total)
	}

	// Validation failures must never consume stock.
	assert.Equal(t, 10, svc.Stock(context.Background()))
}

func TestCheckoutExactUnderConcurrency(t *testing.T) {
	const (
		initialStock = 10
		requests     = 25
	)
	svc := newTestService(t, initialStock)

	var successes, failures atomic.Int64
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: 14000})
			if !assert.NoError(t, err) {
				return
			}
			switch result.Status {
			case domcheckout.StatusSuccess:
				assert.NotEmpty(t, result.PlanID)
				successes.Add(1)
			default:
				failures.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(initialStock), successes.Load())
	assert.Equal(t, int64(requests-initialStock), failures.Load())
	assert.Equal(t, 0, svc.Stock(context.Background()))
}

func TestResetRestoresConfiguredInitialStock(t *testing.T) {
	svc := newTestService(t, 10)

	for i := 0; i < 4; i++ {
		_, err := svc.Checkout(context.Background(), CheckoutInput{TotalCents: 5000})
		require.NoError(t, err)
	}
	require.Equal(t, 6, svc.Stock(context.Background()))

	assert.Equal(t, 10, svc.ResetStock(context.Background()))
	assert.Equal(t, 10, svc.Stock(context.Background()))

	// Idempotent: a second reset observes the same stock.
	assert.Equal(t, 10, svc.ResetStock(context.Background()))
	assert.Equal(t, 10, svc.Stock(context.Background()))
}

func TestPlanLookupUnknownID(t *testing.T) {
	svc := newTestService(t, 10)

	_, err := svc.Plan(context.Background(), "plan_missing")
	assert.ErrorIs(t, err, domplan.ErrNotFound)
}
