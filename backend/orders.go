package backend

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOrderNotFound is returned when an order ID has no record.
var ErrOrderNotFound = errors.New("order not found")

// Order is one order record.
type Order struct {
	ID     string `json:"id"`
	Item   string `json:"item"`
	Status string `json:"status"`
}

// OrderStore is a fixture-backed order database.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewOrderStore constructs the store with its fixture orders.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: map[string]Order{
			"101":   {ID: "101", Item: "Smart Speaker", Status: "Delivered"},
			"102":   {ID: "102", Item: "Pixel Buds Pro", Status: "In Transit"},
			"103":   {ID: "103", Item: "Phone Case", Status: "Processing"},
			"12345": {ID: "12345", Item: "Wireless Keyboard", Status: "Shipped"},
		},
	}
}

// Lookup returns the order with the given ID.
func (s *OrderStore) Lookup(orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	return order, nil
}
