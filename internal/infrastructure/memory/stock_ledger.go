package memory

import (
	"sync"

	domledger "github.com/gopherpay/checkout-engine/internal/domain/ledger"
)

// StockLedger keeps the available-stock counter in RAM behind one mutex.
// Check and decrement happen under the same lock acquisition, which is what
// makes TryReserve linearizable: concurrent callers serialize on the lock and
// exactly min(callers, available) of them win.
type StockLedger struct {
	mu        sync.Mutex
	available int
}

// NewStockLedger creates a ledger starting at the given stock level.
func NewStockLedger(initial int) (*StockLedger, error) {
	if initial < 0 {
		return nil, domledger.ErrNegativeStock
	}
	return &StockLedger{available: initial}, nil
}

func (l *StockLedger) TryReserve() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available <= 0 {
		return false
	}
	l.available--
	return true
}

func (l *StockLedger) Reset(to int) {
	if to < 0 {
		to = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available = to
}

func (l *StockLedger) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}
