package plan

import (
	"sort"
	"time"
)

// Tier maps a minimum total (inclusive, cents) to an installment count.
type Tier struct {
	MinCents int64
	Count    int
}

// Planner turns a total price and a purchase time into an installment
// schedule. It is pure: same inputs, same schedule, no side effects.
type Planner struct {
	tiers []Tier
}

// NewPlanner validates the tier table and returns a planner bound to it.
// Tiers must be sorted ascending by MinCents and every count must be >= 1.
func NewPlanner(tiers []Tier) (*Planner, error) {
	if len(tiers) == 0 {
		return nil, ErrInvalidTiers
	}
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].MinCents < tiers[j].MinCents }) {
		return nil, ErrInvalidTiers
	}
	for _, t := range tiers {
		if t.Count < 1 || t.MinCents < 0 {
			return nil, ErrInvalidTiers
		}
	}
	return &Planner{tiers: append([]Tier(nil), tiers...)}, nil
}

// Build computes the schedule for totalCents purchased at purchaseDate.
// The total is divided by the tier's installment count using integer
// division; the remainder is added to the first installment (the one paid
// now), so the amounts sum exactly to the total. Installment k (k > 1) is due
// k-1 calendar months after the purchase, day-of-month clamped to the target
// month's last day.
func (p *Planner) Build(totalCents int64, purchaseDate time.Time) (*Plan, error) {
	if totalCents <= 0 {
		return nil, ErrInvalidAmount
	}

	n := p.countFor(totalCents)
	// Never schedule a zero-amount installment for tiny totals.
	if totalCents < int64(n) {
		n = int(totalCents)
	}

	base := totalCents / int64(n)
	remainder := totalCents % int64(n)

	installments := make([]Installment, n)
	for i := 0; i < n; i++ {
		amount := base
		dueDate := purchaseDate
		if i == 0 {
			amount += remainder
		} else {
			dueDate = addMonthsClamped(purchaseDate, i)
		}
		installments[i] = Installment{
			Sequence: i + 1,
			Amount:   amount,
			DueDate:  dueDate,
		}
	}

	return &Plan{
		TotalCents:   totalCents,
		Installments: installments,
	}, nil
}

func (p *Planner) countFor(totalCents int64) int {
	count := 1
	for _, t := range p.tiers {
		if totalCents >= t.MinCents {
			count = t.Count
		}
	}
	return count
}

// addMonthsClamped moves t forward by the given number of calendar months,
// keeping the day-of-month but clamping to the last valid day when the target
// month is shorter (Jan 31 + 1 month lands on the last day of February).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
