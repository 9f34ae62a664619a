package checkout

import (
	"context"
	"fmt"
	"time"

	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domledger "github.com/gopherpay/checkout-engine/internal/domain/ledger"
	domoutbox "github.com/gopherpay/checkout-engine/internal/domain/outbox"
	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
	"github.com/gopherpay/checkout-engine/internal/observability"
	"github.com/gopherpay/checkout-engine/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentCheckout = "checkout_service"
	useCaseCheckout   = "checkout.process"
	checkoutSpanName  = "UC.Checkout"

	messageSuccess       = "ok"
	messageOutOfStock    = "insufficient stock"
	messageInvalidAmount = "total_cents must be greater than zero"

	publishTimeout = 300 * time.Millisecond
)

// Service coordinates one checkout: reserve a unit, compute the installment
// schedule, assign a plan id, record the plan. Reservation is the point of no
// return: a reserved unit is never released on a downstream error, so there
// is no release/re-reserve race to lose.
type Service struct {
	ledger       domledger.Ledger
	planner      *domplan.Planner
	plans        PlanStore
	idGenerator  IDGenerator
	clock        Clock
	publisher    domoutbox.Publisher
	initialStock int

	log          observability.Logger
	tracer       observability.TraceCtx
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewService(
	ledger domledger.Ledger,
	planner *domplan.Planner,
	plans PlanStore,
	idGen IDGenerator,
	clock Clock,
	publisher domoutbox.Publisher,
	initialStock int,
	tel observability.Telemetry,
) *Service {
	log := observability.NopLogger()
	tracer := observability.NopTracer()
	reqCounter := observability.NopCounter()
	durHistogram := observability.NopHistogram()
	if tel != nil {
		log = tel.Logger()
		tracer = tel.Tracer()
		reqCounter = tel.Counter(observability.MCheckoutRequests)
		durHistogram = tel.Histogram(observability.MCheckoutDuration)
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		ledger:       ledger,
		planner:      planner,
		plans:        plans,
		idGenerator:  idGen,
		clock:        clock,
		publisher:    publisher,
		initialStock: initialStock,
		log:          log.With(observability.F("component", componentCheckout)),
		tracer:       tracer,
		reqCounter:   reqCounter,
		durHistogram: durHistogram,
	}
}

type CheckoutInput struct {
	TotalCents int64
}

// Result is the outcome handed back to the gateway. Plan is nil and PlanID
// empty whenever Status is FAILED.
type Result struct {
	Status  domcheckout.Status
	Message string
	PlanID  string
	Plan    *domplan.Plan
}

// Checkout processes one purchase attempt. Business-rule failures come back
// as a FAILED Result with a nil error; a non-nil error means an internal
// defect the gateway should not dress up as a business outcome.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseCheckout),
		observability.F("total_cents", input.TotalCents),
	)

	ctx, span := s.tracer.Start(ctx, checkoutSpanName,
		attribute.String("use_case", useCaseCheckout),
		attribute.Int64("checkout.total_cents", input.TotalCents),
	)
	start := time.Now()
	outcome := "success"

	defer func() {
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, outcome)
			} else {
				span.SetStatus(codes.Ok, outcome)
			}
			span.End()
		}

		latency := time.Since(start).Seconds()
		s.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(latency,
			observability.L("use_case", useCaseCheckout),
		)

		logger.Info("checkout_done",
			observability.F("outcome", outcome),
			observability.F("latency_seconds", latency),
		)
	}()

	if input.TotalCents <= 0 {
		outcome = domcheckout.RejectReasonInvalidAmount
		s.publish(ctx, domcheckout.NewCheckoutRejectedEvent(domcheckout.RejectReasonInvalidAmount, input.TotalCents))
		return &Result{
			Status:  domcheckout.StatusFailed,
			Message: messageInvalidAmount,
		}, nil
	}

	if !s.ledger.TryReserve() {
		outcome = domcheckout.RejectReasonOutOfStock
		s.publish(ctx, domcheckout.NewCheckoutRejectedEvent(domcheckout.RejectReasonOutOfStock, input.TotalCents))
		return &Result{
			Status:  domcheckout.StatusFailed,
			Message: messageOutOfStock,
		}, nil
	}

	if span != nil {
		span.AddEvent("stock.reserved",
			trace.WithAttributes(attribute.Int64("checkout.total_cents", input.TotalCents)),
		)
	}

	// The unit is sold from here on, whatever happens below.
	p, planErr := s.planner.Build(input.TotalCents, s.clock.Now())
	if planErr != nil {
		outcome = "error"
		return nil, fmt.Errorf("checkout: build plan: %w", planErr)
	}
	p.PlanID = s.idGenerator.NewID()

	if s.plans != nil {
		if saveErr := s.plans.Save(ctx, p); saveErr != nil {
			logger.Warn("plan_store_save_failed",
				observability.F("plan_id", p.PlanID),
				observability.F("error", saveErr),
			)
		}
	}

	s.publish(ctx, domcheckout.NewCheckoutAcceptedEvent(p.PlanID, p.TotalCents, len(p.Installments)))

	return &Result{
		Status:  domcheckout.StatusSuccess,
		Message: messageSuccess,
		PlanID:  p.PlanID,
		Plan:    p,
	}, nil
}

// Stock returns a point-in-time snapshot of the available counter.
func (s *Service) Stock(ctx context.Context) int {
	_ = ctx
	return s.ledger.Available()
}

// ResetStock restores the counter to the configured initial value and
// reports it. Calling it again without intervening checkouts is a no-op.
func (s *Service) ResetStock(ctx context.Context) int {
	s.ledger.Reset(s.initialStock)
	logctx.FromOr(ctx, s.log).Info("stock_reset",
		observability.F("restored_to", s.initialStock),
	)
	s.publish(ctx, domcheckout.NewStockResetEvent(s.initialStock))
	return s.initialStock
}

// Plan looks up a previously issued plan by id.
func (s *Service) Plan(ctx context.Context, planID string) (*domplan.Plan, error) {
	if s.plans == nil {
		return nil, domplan.ErrNotFound
	}
	return s.plans.Get(ctx, planID)
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil || e == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
