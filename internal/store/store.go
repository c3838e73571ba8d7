// Package store provides the in-memory order store backing the HTTP
// surface. It stands in for the host order-management system: mutations
// run under the store lock, so the delete-then-insert of a shipping line
// is observed atomically by readers.
package store

import (
	"fmt"
	"sync"

	"github.com/fulfilware/postage/pkg/sale"
	"github.com/google/uuid"
)

// OrderStore keeps orders in memory, keyed by ID.
type OrderStore struct {
	orders map[string]*sale.Order
	mu     sync.RWMutex
}

// NewOrderStore creates an empty order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*sale.Order),
	}
}

// Create stores a new order. A missing ID is assigned.
func (s *OrderStore) Create(o *sale.Order) *sale.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.orders[o.ID] = o
	return o
}

// Get returns a copy of the order with the given ID.
func (s *OrderStore) Get(id string) (*sale.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sale.ErrOrderNotFound, id)
	}
	snapshot := *o
	snapshot.Lines = append([]sale.OrderLine(nil), o.Lines...)
	return &snapshot, nil
}

// Update runs fn on the stored order under the store lock. The ambient
// transaction the host system would provide reduces to this: fn either
// completes and its changes are visible at once, or the error leaves the
// order untouched.
func (s *OrderStore) Update(id string, fn func(o *sale.Order) error) (*sale.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sale.ErrOrderNotFound, id)
	}

	scratch := *o
	scratch.Lines = append([]sale.OrderLine(nil), o.Lines...)
	if err := fn(&scratch); err != nil {
		return nil, err
	}

	s.orders[id] = &scratch

	snapshot := scratch
	snapshot.Lines = append([]sale.OrderLine(nil), scratch.Lines...)
	return &snapshot, nil
}

// Count returns the number of stored orders.
func (s *OrderStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
