package matchcache

import (
	"sync/atomic"

	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
)

// Budget caps remote detail fetches within one refresh cycle.
type Budget struct {
	limit     int64
	remaining atomic.Int64
}

func NewBudget(limit int) *Budget {
	b := &Budget{limit: int64(limit)}
	b.remaining.Store(b.limit)
	return b
}

// Take consumes one unit, failing with ErrFetchBudgetExceeded once the counter reaches zero.
func (b *Budget) Take() error {
	for {
		n := b.remaining.Load()
		if n <= 0 {
			return errors.WithStack(domain.ErrFetchBudgetExceeded)
		}
		if b.remaining.CompareAndSwap(n, n-1) {
			return nil
		}
	}
}

func (b *Budget) Reset() {
	b.remaining.Store(b.limit)
}

func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}

func (b *Budget) Limit() int {
	return int(b.limit)
}

func (b *Budget) Exhausted() bool {
	return b.remaining.Load() <= 0
}
