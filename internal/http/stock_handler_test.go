package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/reservation"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogStub struct {
	products map[string]*domain.Product
	err      error
}

func (s *catalogStub) GetProducts(_ context.Context, ids []string) ([]*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func setupHandler(t *testing.T, cat *catalogStub) (*StockHandler, *reservation.MemoryStore) {
	holds := reservation.NewMemoryStore(time.Minute)
	t.Cleanup(func() { holds.Close() })

	facade := stock.NewService(cat, holds, stock.DefaultMaxBatch)
	return NewStockHandler(facade, 5*time.Second), holds
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	handler(recorder, request)
	return recorder
}

func TestGetStock_Success(t *testing.T) {
	handler, holds := setupHandler(t, &catalogStub{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Laptop", IsPublished: true, CountInStock: 5},
	}})
	holds.Put("p1", "r1", 3, time.Minute)

	recorder := postJSON(t, handler.GetStock, StockRequestDTO{ProductIDs: []string{"p1"}})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response StockResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Data, 1)

	item := response.Data[0]
	assert.Equal(t, "p1", item.ProductID)
	assert.Equal(t, "Laptop", item.Name)
	assert.Equal(t, 5, item.ActualStock)
	assert.Equal(t, 2, item.EffectiveStock)
	assert.True(t, item.InStock)
}

func TestGetStock_MissingBody(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	handler.GetStock(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetStock_EmptyProductIDs(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{})

	recorder := postJSON(t, handler.GetStock, StockRequestDTO{ProductIDs: []string{}})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "invalid_request", response.Code)
}

func TestGetStock_BatchCap(t *testing.T) {
	products := make(map[string]*domain.Product)
	var ids []string
	for i := 0; i < 51; i++ {
		id := fmt.Sprintf("p%d", i)
		products[id] = &domain.Product{ID: id, Name: id, IsPublished: true, CountInStock: 1}
		ids = append(ids, id)
	}
	handler, _ := setupHandler(t, &catalogStub{products: products})

	recorder := postJSON(t, handler.GetStock, StockRequestDTO{ProductIDs: ids})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var errResponse ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&errResponse))
	assert.Equal(t, "too_many_products", errResponse.Code)

	recorder = postJSON(t, handler.GetStock, StockRequestDTO{ProductIDs: ids[:50]})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response StockResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Len(t, response.Data, 50)
}

func TestGetStock_StorageFailure(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{err: fmt.Errorf("database is down")})

	recorder := postJSON(t, handler.GetStock, StockRequestDTO{ProductIDs: []string{"p1"}})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "internal_error", response.Code)
}

func TestValidateCart_MixedResults(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Laptop", IsPublished: true, CountInStock: 5},
		"p2": {ID: "p2", Name: "X", IsPublished: true, CountInStock: 3},
	}})

	recorder := postJSON(t, handler.ValidateCart, ValidateRequestDTO{Items: []ValidateItemDTO{
		{Product: "p1", Name: "Laptop", Quantity: 2},
		{Product: "p2", Name: "X", Quantity: 10},
		{Product: "ghost", Name: "Ghost", Quantity: 1},
	}})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response ValidateResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	assert.True(t, response.Success)
	assert.Equal(t, []string{"p1"}, response.Data.ValidItems)
	assert.True(t, response.Data.HasInvalidItems)
	require.Len(t, response.Data.InvalidItems, 2)

	reasons := map[string]string{}
	for _, item := range response.Data.InvalidItems {
		reasons[item.ProductID] = item.Reason
	}
	assert.Equal(t, "insufficient_stock", reasons["p2"])
	assert.Equal(t, "not_found", reasons["ghost"])
}

func TestValidateCart_AllValid(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Laptop", IsPublished: true, CountInStock: 5},
	}})

	recorder := postJSON(t, handler.ValidateCart, ValidateRequestDTO{Items: []ValidateItemDTO{
		{Product: "p1", Name: "Laptop", Quantity: 2},
	}})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response ValidateResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.False(t, response.Data.HasInvalidItems)
	assert.Empty(t, response.Data.InvalidItems)
}

func TestValidateCart_MalformedBody(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("[]")))
	handler.ValidateCart(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestValidateCart_InvalidQuantity(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{})

	tests := []struct {
		name     string
		quantity int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too large", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := postJSON(t, handler.ValidateCart, ValidateRequestDTO{Items: []ValidateItemDTO{
				{Product: "p1", Name: "Laptop", Quantity: tt.quantity},
			}})
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
			assert.Equal(t, "invalid_quantity", response.Code)
		})
	}
}

func TestValidateCart_EmptyItems(t *testing.T) {
	handler, _ := setupHandler(t, &catalogStub{})

	recorder := postJSON(t, handler.ValidateCart, ValidateRequestDTO{Items: []ValidateItemDTO{}})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	RequestIDMiddleware(next).ServeHTTP(recorder, request)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	// A caller-supplied id is honored
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "req-42")
	RequestIDMiddleware(next).ServeHTTP(recorder, request)

	assert.Equal(t, "req-42", seen)
}
