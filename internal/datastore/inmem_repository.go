package datastore

import (
	"context"
	"sort"
	"sync"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// InMemRepository is an in-memory OrderSource for tests and offline reports.
type InMemRepository struct {
	mu     sync.RWMutex
	orders map[string][]portfolio.Order
}

// NewInMemRepository creates a new InMemRepository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{orders: make(map[string][]portfolio.Order)}
}

// SeedOrders adds orders grouped by their task ID.
func (r *InMemRepository) SeedOrders(orders []portfolio.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range orders {
		r.orders[o.TaskID] = append(r.orders[o.TaskID], o)
	}
	for id := range r.orders {
		list := r.orders[id]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.Before(list[j].Timestamp)
		})
	}
}

// FetchOrders returns a copy of a task's orders, oldest first.
func (r *InMemRepository) FetchOrders(ctx context.Context, taskID string) ([]portfolio.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]portfolio.Order(nil), r.orders[taskID]...), nil
}

// FetchTaskIDs lists seeded task IDs in sorted order.
func (r *InMemRepository) FetchTaskIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
