package reservation

import (
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
)

// EffectiveStock returns the sellable stock for a product: the durable
// count minus every hold still live at now, clamped at zero. Expiry is
// evaluated here rather than trusted from the caller, so a lagging sweep
// never inflates the held total.
func EffectiveStock(actualStock int, holds []domain.Reservation, now time.Time) int {
	held := 0
	for _, r := range holds {
		if r.Live(now) {
			held += r.Quantity
		}
	}
	if actualStock <= held {
		return 0
	}
	return actualStock - held
}
