package reservation

import (
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
)

// Store holds in-flight stock reservations. It keeps no durable state and
// is rebuilt empty on process restart.
type Store interface {
	// Put creates a reservation with a fresh TTL. An existing reservation
	// with the same (productID, reservationID) key is overwritten, so
	// re-reserving the same cart line is idempotent.
	Put(productID, reservationID string, quantity int, ttl time.Duration)

	// Renew extends the expiry of an existing live reservation without
	// changing its quantity. It reports whether a reservation was renewed;
	// a missing or already-expired reservation is a silent no-op and must
	// be re-created via Put, not resurrected.
	Renew(productID, reservationID string, ttl time.Duration) bool

	// Release deletes a reservation. Releasing a reservation that does not
	// exist is a success, not an error.
	Release(productID, reservationID string)

	// LiveFor returns the live (non-expired) reservations for a product,
	// ordered by creation time. Expired entries are excluded even if the
	// sweep has not yet deleted them.
	LiveFor(productID string) []domain.Reservation

	// SweepExpired deletes reservations whose expiry has passed and returns
	// how many were removed. The sweep is a memory-reclamation step only;
	// correctness comes from the lazy expiry check in LiveFor.
	SweepExpired(now time.Time) int

	// Close stops any background work owned by the store.
	Close() error
}
