package outbox

import (
	"context"
	"testing"
	"time"

	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domoutbox "github.com/gopherpay/checkout-engine/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	received := make(chan domoutbox.Event, 1)
	bus.Subscribe(domcheckout.CheckoutAcceptedEvent{}.EventName(), func(ctx context.Context, e domoutbox.Event) error {
		received <- e
		return nil
	})

	evt := domcheckout.NewCheckoutAcceptedEvent("plan_abc", 14000, 3)
	require.NoError(t, bus.Publish(context.Background(), evt))

	select {
	case got := <-received:
		accepted, ok := got.(domcheckout.CheckoutAcceptedEvent)
		require.True(t, ok)
		assert.Equal(t, "plan_abc", accepted.PlanID)
		assert.Equal(t, int64(14000), accepted.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusDropsEventWithoutSubscriber(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	// Nothing to assert beyond "does not block or panic".
	require.NoError(t, bus.Publish(context.Background(), domcheckout.NewStockResetEvent(10)))
}

func TestBusPublishHonorsCanceledContext(t *testing.T) {
	bus := NewBus(nil)
	// Bus never started: the queue fills, then a canceled context must win.
	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, bus.Publish(context.Background(), domcheckout.NewStockResetEvent(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bus.Publish(ctx, domcheckout.NewStockResetEvent(0))
	assert.ErrorIs(t, err, context.Canceled)
}
