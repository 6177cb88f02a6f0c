package reservation

import (
	"testing"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func hold(qty int, expiresIn time.Duration) domain.Reservation {
	now := time.Now()
	return domain.Reservation{
		Quantity:  qty,
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestEffectiveStock(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		actual   int
		holds    []domain.Reservation
		expected int
	}{
		{"no holds", 10, nil, 10},
		{"single live hold", 10, []domain.Reservation{hold(3, time.Minute)}, 7},
		{"multiple live holds", 10, []domain.Reservation{hold(3, time.Minute), hold(4, time.Minute)}, 3},
		{"expired hold excluded", 10, []domain.Reservation{hold(3, -time.Minute)}, 10},
		{"mixed live and expired", 10, []domain.Reservation{hold(3, time.Minute), hold(5, -time.Second)}, 7},
		{"clamped at zero", 5, []domain.Reservation{hold(9, time.Minute)}, 0},
		{"exactly consumed", 5, []domain.Reservation{hold(5, time.Minute)}, 0},
		{"zero actual stock", 0, []domain.Reservation{hold(1, time.Minute)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveStock(tt.actual, tt.holds, now))
		})
	}
}

func TestEffectiveStock_TTLBoundary(t *testing.T) {
	createdAt := time.Now()
	ttl := time.Minute
	r := domain.Reservation{
		Quantity:  2,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
	}

	justBefore := createdAt.Add(ttl - time.Millisecond)
	justAfter := createdAt.Add(ttl + time.Millisecond)

	assert.Equal(t, 3, EffectiveStock(5, []domain.Reservation{r}, justBefore))
	assert.Equal(t, 5, EffectiveStock(5, []domain.Reservation{r}, justAfter))
}
