package domain

import "time"

// Product is a catalog entry. Quantity is mutated by direct catalog calls
// and by the inventory reconciler reacting to order events; it never drops
// below zero.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Quantity    int
	Category    string
	Rating      float64
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
