package plan

import (
	"errors"
	"time"
)

var (
	ErrInvalidAmount = errors.New("plan: total must be greater than zero")
	ErrInvalidTiers  = errors.New("plan: tier table must be non-empty, sorted, with counts >= 1")
	ErrNotFound      = errors.New("plan: not found")
)

// Installment is one scheduled portion of the total price.
type Installment struct {
	Sequence int
	Amount   int64
	DueDate  time.Time
}

// Plan is the ordered installment schedule issued for one accepted checkout.
// Amounts always sum exactly to TotalCents; sequences run 1..N with no gaps;
// due dates are non-decreasing and the first one is the purchase date.
type Plan struct {
	PlanID       string
	TotalCents   int64
	Installments []Installment
}
