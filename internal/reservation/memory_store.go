package reservation

import (
	"sort"
	"sync"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
)

const (
	// DefaultTTL is how long a cart hold is valid without renewal.
	DefaultTTL = 15 * time.Minute

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 30 * time.Second
)

// MemoryStore implements Store with in-memory storage sharded by product.
// Each product owns its own lock, so operations on different products
// never block each other; the outer map lock is held only long enough to
// find or create a shard.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*productHolds

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

type productHolds struct {
	mu    sync.RWMutex
	holds map[string]*domain.Reservation // reservationID -> reservation

	// dead is set, under mu, when the sweep removes this shard from the
	// product map. A writer that looked the shard up before removal must
	// not land a hold here: it would be invisible to readers.
	dead bool
}

// NewMemoryStore creates a reservation store and starts its background
// sweep. A non-positive interval falls back to DefaultSweepInterval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	s := &MemoryStore{
		products:  make(map[string]*productHolds),
		stopSweep: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop(sweepInterval)

	return s
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepExpired(time.Now())
		case <-s.stopSweep:
			return
		}
	}
}

// shard returns the holds for a product, creating them when create is set.
func (s *MemoryStore) shard(productID string, create bool) *productHolds {
	s.mu.RLock()
	p, ok := s.products[productID]
	s.mu.RUnlock()
	if ok || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.products[productID]; ok {
		return p
	}
	p = &productHolds{holds: make(map[string]*domain.Reservation)}
	s.products[productID] = p
	return p
}

// Put creates or overwrites the reservation for (productID, reservationID)
// with a fresh TTL.
func (s *MemoryStore) Put(productID, reservationID string, quantity int, ttl time.Duration) {
	now := time.Now()
	for {
		p := s.shard(productID, true)

		p.mu.Lock()
		if p.dead {
			// The sweep reclaimed this shard between lookup and lock.
			p.mu.Unlock()
			continue
		}
		p.holds[reservationID] = &domain.Reservation{
			ProductID:     productID,
			ReservationID: reservationID,
			Quantity:      quantity,
			CreatedAt:     now,
			ExpiresAt:     now.Add(ttl),
		}
		p.mu.Unlock()
		return
	}
}

// Renew slides the expiry of a live reservation. A reservation that has
// already lapsed is treated as missing: renewing it would resurrect a hold
// that readers have stopped counting.
func (s *MemoryStore) Renew(productID, reservationID string, ttl time.Duration) bool {
	p := s.shard(productID, false)
	if p == nil {
		return false
	}
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.holds[reservationID]
	if !ok || !r.Live(now) {
		return false
	}
	r.ExpiresAt = now.Add(ttl)
	return true
}

// Release deletes a reservation. Missing reservations are ignored.
func (s *MemoryStore) Release(productID, reservationID string) {
	p := s.shard(productID, false)
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.holds, reservationID)
}

// LiveFor returns the live reservations for a product ordered by creation
// time. Lapsed entries are skipped regardless of sweep timing.
func (s *MemoryStore) LiveFor(productID string) []domain.Reservation {
	p := s.shard(productID, false)
	if p == nil {
		return nil
	}
	now := time.Now()

	p.mu.RLock()
	live := make([]domain.Reservation, 0, len(p.holds))
	for _, r := range p.holds {
		if r.Live(now) {
			live = append(live, *r)
		}
	}
	p.mu.RUnlock()

	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ReservationID < live[j].ReservationID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	return live
}

// SweepExpired removes lapsed reservations and empty shards. Shards are
// locked one at a time, so the sweep never blocks reads of other products.
func (s *MemoryStore) SweepExpired(now time.Time) int {
	s.mu.RLock()
	shards := make(map[string]*productHolds, len(s.products))
	for id, p := range s.products {
		shards[id] = p
	}
	s.mu.RUnlock()

	removed := 0
	empty := make([]string, 0)
	for productID, p := range shards {
		p.mu.Lock()
		for id, r := range p.holds {
			if !r.Live(now) {
				delete(p.holds, id)
				removed++
			}
		}
		if len(p.holds) == 0 {
			empty = append(empty, productID)
		}
		p.mu.Unlock()
	}

	if len(empty) > 0 {
		s.mu.Lock()
		for _, productID := range empty {
			p, ok := s.products[productID]
			if !ok {
				continue
			}
			// A writer may have raced a new hold into the shard. Removal
			// marks the shard dead under its write lock so a writer still
			// holding the old pointer re-resolves instead of landing an
			// invisible hold.
			p.mu.Lock()
			if len(p.holds) == 0 {
				p.dead = true
				delete(s.products, productID)
			}
			p.mu.Unlock()
		}
		s.mu.Unlock()
	}

	return removed
}

// Close stops the background sweep and waits for it to finish.
func (s *MemoryStore) Close() error {
	close(s.stopSweep)
	s.wg.Wait()
	return nil
}
