package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/stock"
)

// StockFacade is the boundary contract of the stock engine.
type StockFacade interface {
	GetEffectiveStocks(ctx context.Context, productIDs []string) ([]domain.StockLevel, error)
	ValidateCartLines(ctx context.Context, lines []domain.CartLine) (valid []string, invalid []domain.InvalidLine, err error)
}

type StockHandler struct {
	stocks  StockFacade
	timeout time.Duration
}

func NewStockHandler(stocks StockFacade, timeout time.Duration) *StockHandler {
	return &StockHandler{
		stocks:  stocks,
		timeout: timeout,
	}
}

type StockRequestDTO struct {
	ProductIDs []string `json:"productIds"`
}

type StockItemDTO struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	ActualStock    int    `json:"actualStock"`
	EffectiveStock int    `json:"effectiveStock"`
	InStock        bool   `json:"inStock"`
}

type StockResponseDTO struct {
	Data []StockItemDTO `json:"data"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// GetStock handles POST /stock: bulk effective-stock lookup.
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "productIds must be a non-empty array")
		return
	}

	levels, err := h.stocks.GetEffectiveStocks(ctx, req.ProductIDs)
	if err != nil {
		handleFacadeError(w, err)
		return
	}

	items := make([]StockItemDTO, len(levels))
	for i, level := range levels {
		items[i] = StockItemDTO{
			ProductID:      level.ProductID,
			Name:           level.Name,
			ActualStock:    level.ActualStock,
			EffectiveStock: level.EffectiveStock,
			InStock:        level.InStock,
		}
	}

	respondJSON(w, http.StatusOK, StockResponseDTO{Data: items})
}

type ValidateItemDTO struct {
	Product  string `json:"product"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type ValidateRequestDTO struct {
	Items []ValidateItemDTO `json:"items"`
}

type InvalidItemDTO struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

type ValidateDataDTO struct {
	ValidItems      []string         `json:"validItems"`
	InvalidItems    []InvalidItemDTO `json:"invalidItems"`
	HasInvalidItems bool             `json:"hasInvalidItems"`
}

type ValidateResponseDTO struct {
	Success bool            `json:"success"`
	Data    ValidateDataDTO `json:"data"`
}

// ValidateCart handles POST /cart/validate. It answers "would this cart
// be valid right now" and never creates reservations.
func (h *StockHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ValidateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "items must be a non-empty array")
		return
	}
	for _, item := range req.Items {
		if item.Product == "" {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product must not be empty")
			return
		}
		if item.Quantity <= 0 || item.Quantity > 99 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
			return
		}
	}

	lines := make([]domain.CartLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = domain.CartLine{
			ProductID: item.Product,
			Name:      item.Name,
			Quantity:  item.Quantity,
		}
	}

	valid, invalid, err := h.stocks.ValidateCartLines(ctx, lines)
	if err != nil {
		handleFacadeError(w, err)
		return
	}

	invalidItems := make([]InvalidItemDTO, len(invalid))
	for i, line := range invalid {
		invalidItems[i] = InvalidItemDTO{
			ProductID: line.ProductID,
			Name:      line.Name,
			Reason:    line.Reason,
		}
	}
	if valid == nil {
		valid = []string{}
	}

	respondJSON(w, http.StatusOK, ValidateResponseDTO{
		Success: true,
		Data: ValidateDataDTO{
			ValidItems:      valid,
			InvalidItems:    invalidItems,
			HasInvalidItems: len(invalidItems) > 0,
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleFacadeError maps facade errors to HTTP status codes. Boundary
// validation failures are 400s; anything else means the durable store
// failed and the engine does not guess a fallback stock value.
func handleFacadeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stock.ErrNoProducts):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, stock.ErrTooManyProducts):
		respondError(w, http.StatusBadRequest, "too_many_products", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
