package domain

import "time"

// Reservation is a temporary hold on stock for a single product, keyed by
// (ProductID, ReservationID). It never outlives its expiry: readers skip
// expired holds even before the sweep deletes them.
type Reservation struct {
	ProductID     string
	ReservationID string
	Quantity      int
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Live reports whether the hold still counts against effective stock at now.
func (r *Reservation) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
