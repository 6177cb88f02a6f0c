package reservation

import (
	"errors"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// Decision is the outcome of an admission attempt.
type Decision struct {
	Granted  bool
	Quantity int // quantity admitted when Granted
	// Available is the effective stock observed at decision time, not
	// counting any hold the caller already has under this reservation id.
	// On a decline it is the "only N left" hint callers report to the
	// user.
	Available int
}

// Manager is the only writer to the reservation store. It admits, renews
// and releases holds; reads of effective stock go through the store
// directly.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a lifecycle manager issuing holds with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl}
}

// TTL returns the hold duration the manager issues.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// TryReserve admits the full requested quantity or declines; it never
// reserves a partial amount. Admission is optimistic: two concurrent calls
// for the same product can both read the same effective stock before
// either hold lands, so transient over-admission is possible, bounded by
// (concurrently racing callers - 1) x requested quantity for that product.
// The conditional durable decrement at fulfillment corrects any such
// oversell, which is why no per-product admission lock is taken here.
func (m *Manager) TryReserve(productID, reservationID string, quantity, actualStock int) (Decision, error) {
	if quantity <= 0 {
		return Decision{}, ErrInvalidQuantity
	}

	available := EffectiveStock(actualStock, m.othersFor(productID, reservationID), time.Now())
	if quantity > available {
		return Decision{Granted: false, Available: available}, nil
	}

	m.store.Put(productID, reservationID, quantity, m.ttl)
	return Decision{Granted: true, Quantity: quantity, Available: available}, nil
}

// othersFor returns the live holds for a product excluding the caller's
// own. Admission overwrites an existing hold under the same key, so the
// old quantity must not count against the new request.
func (m *Manager) othersFor(productID, reservationID string) []domain.Reservation {
	live := m.store.LiveFor(productID)
	others := live[:0]
	for _, r := range live {
		if r.ReservationID != reservationID {
			others = append(others, r)
		}
	}
	return others
}

// RenewOrReserve slides the expiry of an existing hold. When the hold has
// lapsed (or never existed) it falls back to a fresh admission, so repeated
// validation of the same cart keeps exactly one hold alive.
func (m *Manager) RenewOrReserve(productID, reservationID string, quantity, actualStock int) (Decision, error) {
	if quantity <= 0 {
		return Decision{}, ErrInvalidQuantity
	}

	if m.store.Renew(productID, reservationID, m.ttl) {
		available := EffectiveStock(actualStock, m.othersFor(productID, reservationID), time.Now())
		return Decision{Granted: true, Quantity: quantity, Available: available}, nil
	}

	return m.TryReserve(productID, reservationID, quantity, actualStock)
}

// Release drops a hold. It is idempotent: releasing a hold that expired or
// never existed succeeds, and callers cannot tell the two apart.
func (m *Manager) Release(productID, reservationID string) {
	m.store.Release(productID, reservationID)
}
