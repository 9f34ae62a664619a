package worker

import (
	"context"
	"strconv"

	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domledger "github.com/gopherpay/checkout-engine/internal/domain/ledger"
	domoutbox "github.com/gopherpay/checkout-engine/internal/domain/outbox"
	"github.com/gopherpay/checkout-engine/internal/observability"
	"github.com/gopherpay/checkout-engine/internal/observability/logctx"
	workerpresentation "github.com/gopherpay/checkout-engine/internal/presentation/worker"
)

const componentAudit = "audit_worker"

// Worker consumes checkout events off the bus and keeps the business-level
// view current: units sold, rejections by reason, resets, and the live stock
// gauge. It only observes; the ledger stays authoritative.
type Worker struct {
	subscriber domoutbox.Subscriber
	ledger     domledger.Ledger

	log              observability.Logger
	unitsSold        observability.Counter
	rejected         observability.Counter
	resets           observability.Counter
	stockGauge       observability.Gauge
	installmentsHist observability.Histogram
}

func New(subscriber domoutbox.Subscriber, ledger domledger.Ledger, tel observability.Telemetry) *Worker {
	log := observability.NopLogger()
	unitsSold := observability.NopCounter()
	rejected := observability.NopCounter()
	resets := observability.NopCounter()
	stockGauge := observability.NopGauge()
	installmentsHist := observability.NopHistogram()
	if tel != nil {
		log = tel.Logger()
		unitsSold = tel.Counter(observability.MUnitsSold)
		rejected = tel.Counter(observability.MCheckoutsRejected)
		resets = tel.Counter(observability.MStockResets)
		stockGauge = tel.Gauge(observability.MStockAvailable)
		installmentsHist = tel.Histogram(observability.MPlanInstallments)
	}

	return &Worker{
		subscriber:       subscriber,
		ledger:           ledger,
		log:              log.With(observability.F("component", componentAudit)),
		unitsSold:        unitsSold,
		rejected:         rejected,
		resets:           resets,
		stockGauge:       stockGauge,
		installmentsHist: installmentsHist,
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domcheckout.CheckoutAcceptedEvent{}.EventName(), w.handleAccepted)
	w.subscriber.Subscribe(domcheckout.CheckoutRejectedEvent{}.EventName(), w.handleRejected)
	w.subscriber.Subscribe(domcheckout.StockResetEvent{}.EventName(), w.handleReset)
}

func (w *Worker) handleAccepted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.CheckoutAcceptedEvent)
	if !ok {
		return nil
	}

	ctx = workerpresentation.WithEventContext(ctx, w.log, map[string]string{
		"event":   evt.EventName(),
		"plan_id": evt.PlanID,
	})

	w.unitsSold.Add(1)
	w.installmentsHist.Observe(float64(evt.Installments))
	w.refreshStockGauge()

	logctx.FromOr(ctx, w.log).Info("checkout_recorded",
		observability.F("total_cents", evt.TotalCents),
		observability.F("installments", evt.Installments),
	)
	return nil
}

func (w *Worker) handleRejected(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.CheckoutRejectedEvent)
	if !ok {
		return nil
	}

	ctx = workerpresentation.WithEventContext(ctx, w.log, map[string]string{
		"event":  evt.EventName(),
		"reason": evt.Reason,
	})

	w.rejected.Add(1, observability.L("reason", evt.Reason))
	w.refreshStockGauge()

	logctx.FromOr(ctx, w.log).Info("checkout_rejection_recorded",
		observability.F("total_cents", evt.TotalCents),
	)
	return nil
}

func (w *Worker) handleReset(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.StockResetEvent)
	if !ok {
		return nil
	}

	ctx = workerpresentation.WithEventContext(ctx, w.log, map[string]string{
		"event":       evt.EventName(),
		"restored_to": strconv.Itoa(evt.RestoredTo),
	})

	w.resets.Add(1)
	w.refreshStockGauge()

	logctx.FromOr(ctx, w.log).Info("stock_reset_recorded")
	return nil
}

func (w *Worker) refreshStockGauge() {
	if w.ledger == nil {
		return
	}
	w.stockGauge.Set(float64(w.ledger.Available()))
}
