package ledger

import "errors"

var (
	ErrNegativeStock = errors.New("ledger: stock must not be negative")
)

// Ledger holds the single available-stock counter. Implementations must make
// TryReserve a single indivisible check-and-decrement: a read followed by a
// conditional write is a lost-update race under concurrent callers.
type Ledger interface {
	// TryReserve atomically decrements available stock by one. It reports
	// false, with no mutation, when no stock is left.
	TryReserve() bool

	// Reset sets available stock to the given value. It is atomic with
	// respect to concurrent TryReserve calls: no reservation is lost or
	// double-counted across a reset.
	Reset(to int)

	// Available is a point-in-time snapshot with no ordering guarantee
	// relative to concurrent reservations. Display use only.
	Available() int
}
