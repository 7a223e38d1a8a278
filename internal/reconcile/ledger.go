package reconcile

import (
	"context"
	"sync"
)

// Ledger suppresses duplicate notification processing. Best-effort by
// design: losing entries on restart only costs redundant work, because
// the lead store is idempotent per (ref, status).
//
// The pipeline must consult Seen before any processor lookup and Mark
// as soon as it decides to process an id, to keep the duplicate window
// under concurrent delivery small.
type Ledger interface {
	Seen(ctx context.Context, paymentID string) bool
	Mark(ctx context.Context, paymentID string)
}

// MemoryLedger is a bounded FIFO set. Insertion past capacity evicts
// the oldest entry.
type MemoryLedger struct {
	mu       sync.Mutex
	capacity int
	order    []string
	ids      map[string]struct{}
}

func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryLedger{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		ids:      make(map[string]struct{}, capacity),
	}
}

func (l *MemoryLedger) Seen(_ context.Context, paymentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.ids[paymentID]
	return ok
}

func (l *MemoryLedger) Mark(_ context.Context, paymentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[paymentID]; ok {
		return
	}

	if len(l.order) >= l.capacity {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.ids, oldest)
	}

	l.order = append(l.order, paymentID)
	l.ids[paymentID] = struct{}{}
}

// Len reports the current number of retained entries.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
