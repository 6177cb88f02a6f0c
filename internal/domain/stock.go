package domain

// StockLevel is the per-product view returned by the stock facade.
type StockLevel struct {
	ProductID      string
	Name           string
	ActualStock    int
	EffectiveStock int
	InStock        bool
}

// CartLine is one requested line of a cart, as submitted for validation
// or checkout.
type CartLine struct {
	ProductID string
	Name      string
	Quantity  int
}

// Reasons attached to invalid cart lines. These are data, not errors: a
// line failing validation never fails the whole batch.
const (
	ReasonNotFound          = "not_found"
	ReasonNotPublished      = "not_published"
	ReasonInsufficientStock = "insufficient_stock"
)

// InvalidLine describes a cart line that failed validation.
type InvalidLine struct {
	ProductID string
	Name      string
	Reason    string
}
