package dbwriter

import (
	"context"
	"sync"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// InMemWriter is an in-memory Journal for tests and offline runs.
type InMemWriter struct {
	mu        sync.RWMutex
	orders    []portfolio.Order
	snapshots []TaskSnapshot
	closed    bool
}

// NewInMemWriter creates a new InMemWriter.
func NewInMemWriter() *InMemWriter {
	return &InMemWriter{}
}

// SaveOrder appends an order.
func (w *InMemWriter) SaveOrder(order portfolio.Order) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orders = append(w.orders, order)
}

// SaveTaskSnapshot appends a snapshot.
func (w *InMemWriter) SaveTaskSnapshot(ctx context.Context, snapshot TaskSnapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, snapshot)
	return nil
}

// Orders returns a copy of the recorded orders.
func (w *InMemWriter) Orders() []portfolio.Order {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]portfolio.Order(nil), w.orders...)
}

// Snapshots returns a copy of the recorded snapshots.
func (w *InMemWriter) Snapshots() []TaskSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]TaskSnapshot(nil), w.snapshots...)
}

// IsClosed reports whether Close was called.
func (w *InMemWriter) IsClosed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// Close marks the writer as closed.
func (w *InMemWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Clear drops everything recorded so far.
func (w *InMemWriter) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orders = nil
	w.snapshots = nil
	w.closed = false
}
