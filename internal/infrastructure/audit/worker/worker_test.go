package worker

import (
	"context"
	"testing"

	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domoutbox "github.com/gopherpay/checkout-engine/internal/domain/outbox"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/memory"
	"github.com/gopherpay/checkout-engine/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *recordingSubscriber) Subscribe(eventName string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]domoutbox.Handler)
	}
	s.handlers[eventName] = h
}

type stubCounter struct{ total float64 }

func (c *stubCounter) Add(d float64, _ ...observability.Label) { c.total += d }

type stubGauge struct{ value float64 }

func (g *stubGauge) Set(v float64, _ ...observability.Label) { g.value = v }

type stubHistogram struct{ observed []float64 }

func (h *stubHistogram) Observe(v float64, _ ...observability.Label) {
	h.observed = append(h.observed, v)
}

type stubTelemetry struct {
	counters   map[string]*stubCounter
	gauges     map[string]*stubGauge
	histograms map[string]*stubHistogram
}

func newStubTelemetry() *stubTelemetry {
	return &stubTelemetry{
		counters:   make(map[string]*stubCounter),
		gauges:     make(map[string]*stubGauge),
		histograms: make(map[string]*stubHistogram),
	}
}

func (t *stubTelemetry) Tracer() observability.TraceCtx { return observability.NopTracer() }
func (t *stubTelemetry) Logger() observability.Logger   { return observability.NopLogger() }

func (t *stubTelemetry) Counter(name string) observability.Counter {
	if _, ok := t.counters[name]; !ok {
		t.counters[name] = &stubCounter{}
	}
	return t.counters[name]
}

func (t *stubTelemetry) Gauge(name string) observability.Gauge {
	if _, ok := t.gauges[name]; !ok {
		t.gauges[name] = &stubGauge{}
	}
	return t.gauges[name]
}

func (t *stubTelemetry) Histogram(name string) observability.Histogram {
	if _, ok := t.histograms[name]; !ok {
		t.histograms[name] = &stubHistogram{}
	}
	return t.histograms[name]
}

func TestWorkerTracksSalesAndStock(t *testing.T) {
	ledger, err := memory.NewStockLedger(10)
	require.NoError(t, err)
	require.True(t, ledger.TryReserve())

	sub := &recordingSubscriber{}
	tel := newStubTelemetry()
	w := New(sub, ledger, tel)
	w.Start()

	handler := sub.handlers[domcheckout.CheckoutAcceptedEvent{}.EventName()]
	require.NotNil(t, handler)
	require.NoError(t, handler(context.Background(), domcheckout.NewCheckoutAcceptedEvent("plan_abc", 14000, 3)))

	assert.Equal(t, float64(1), tel.counters[observability.MUnitsSold].total)
	assert.Equal(t, float64(9), tel.gauges[observability.MStockAvailable].value)
	assert.Equal(t, []float64{3}, tel.histograms[observability.MPlanInstallments].observed)
}

func TestWorkerTracksRejections(t *testing.T) {
	ledger, err := memory.NewStockLedger(0)
	require.NoError(t, err)

	sub := &recordingSubscriber{}
	tel := newStubTelemetry()
	New(sub, ledger, tel).Start()

	handler := sub.handlers[domcheckout.CheckoutRejectedEvent{}.EventName()]
	require.NotNil(t, handler)
	require.NoError(t, handler(context.Background(), domcheckout.NewCheckoutRejectedEvent(domcheckout.RejectReasonOutOfStock, 14000)))

	assert.Equal(t, float64(1), tel.counters[observability.MCheckoutsRejected].total)
	assert.Equal(t, float64(0), tel.gauges[observability.MStockAvailable].value)
}

func TestWorkerTracksResets(t *testing.T) {
	ledger, err := memory.NewStockLedger(10)
	require.NoError(t, err)

	sub := &recordingSubscriber{}
	tel := newStubTelemetry()
	New(sub, ledger, tel).Start()

	handler := sub.handlers[domcheckout.StockResetEvent{}.EventName()]
	require.NotNil(t, handler)
	require.NoError(t, handler(context.Background(), domcheckout.NewStockResetEvent(10)))

	assert.Equal(t, float64(1), tel.counters[observability.MStockResets].total)
	assert.Equal(t, float64(10), tel.gauges[observability.MStockAvailable].value)
}

func TestWorkerIgnoresForeignEvents(t *testing.T) {
	ledger, err := memory.NewStockLedger(10)
	require.NoError(t, err)

	sub := &recordingSubscriber{}
	tel := newStubTelemetry()
	New(sub, ledger, tel).Start()

	// A handler fed the wrong event type must not panic or count anything.
	handler := sub.handlers[domcheckout.CheckoutAcceptedEvent{}.EventName()]
	require.NoError(t, handler(context.Background(), domcheckout.NewStockResetEvent(10)))
	assert.Zero(t, tel.counters[observability.MUnitsSold].total)
}
