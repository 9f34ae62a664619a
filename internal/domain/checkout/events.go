package checkout

import "time"

// CheckoutAcceptedEvent is emitted after a unit of stock has been reserved
// and an installment plan issued. By the time it is published the unit is
// sold; consumers observe, they do not veto.
type CheckoutAcceptedEvent struct {
	PlanID       string
	TotalCents   int64
	Installments int
	OccurredAt   time.Time
}

func (CheckoutAcceptedEvent) EventName() string { return "checkout.accepted" }

func NewCheckoutAcceptedEvent(planID string, totalCents int64, installments int) CheckoutAcceptedEvent {
	return CheckoutAcceptedEvent{
		PlanID:       planID,
		TotalCents:   totalCents,
		Installments: installments,
		OccurredAt:   time.Now().UTC(),
	}
}

// CheckoutRejectedEvent is emitted when a checkout fails a business rule
// (no stock left, or an invalid amount).
type CheckoutRejectedEvent struct {
	Reason     string
	TotalCents int64
	OccurredAt time.Time
}

func (CheckoutRejectedEvent) EventName() string { return "checkout.rejected" }

func NewCheckoutRejectedEvent(reason string, totalCents int64) CheckoutRejectedEvent {
	return CheckoutRejectedEvent{
		Reason:     reason,
		TotalCents: totalCents,
		OccurredAt: time.Now().UTC(),
	}
}

// StockResetEvent is emitted when the stock counter is restored to its
// configured initial value.
type StockResetEvent struct {
	RestoredTo int
	OccurredAt time.Time
}

func (StockResetEvent) EventName() string { return "stock.reset" }

func NewStockResetEvent(restoredTo int) StockResetEvent {
	return StockResetEvent{
		RestoredTo: restoredTo,
		OccurredAt: time.Now().UTC(),
	}
}
