package orderapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
)

func TestClient_CreateOrder(t *testing.T) {
	var got orderReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.True(t, Verify("s3cret", body, r.Header.Get(SignatureHeader)))
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, got.ID.String(), r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(orderResp{ID: got.ID, Number: "SF-1001", Status: domain.OrderStatusConfirmed, Total: got.Pricing.Total})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "s3cret", 0)
	o := &domain.Order{
		ID: uuid.New(), Name: "Karim", Phone: "017", Address: "Banani", Region: domain.RegionInsideDhaka,
		Subtotal: 1000, ShippingCost: 150, CouponDiscount: 100, UpsellDiscount: 50, Total: 1000,
		Items: []domain.OrderItem{{SKU: "A-S-RED", Size: "S", Color: "Red", Qty: 2, UnitPrice: 500, LineTotal: 1000}},
	}
	r, err := c.CreateOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "SF-1001", r.Number)
	assert.Equal(t, domain.OrderStatusConfirmed, r.Status)
	assert.Equal(t, 1000.0, r.Total)
	assert.Equal(t, domain.RegionInsideDhaka, got.Customer.Region)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"out_of_stock", domain.ErrOutOfStock},
		{"insufficient_stock", domain.ErrInsufficientStock},
		{"invalid_coupon", domain.ErrInvalidCoupon},
		{"insufficient_coins", domain.ErrInsufficientCoins},
		{"validation_error", domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(errorResp{Code: tc.code, Message: "nope", SKU: "X"})
			}))
			defer srv.Close()
			_, err := NewClient(srv.URL, "", 0).CreateOrder(context.Background(), &domain.Order{ID: uuid.New()})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, "", 0).CreateOrder(context.Background(), &domain.Order{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_CheckStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock/check", r.URL.Path)
		var in struct {
			Items []domain.StockQuery `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		out := make([]domain.StockAvailability, len(in.Items))
		for i, it := range in.Items {
			out[i] = domain.StockAvailability{CartItemID: it.CartItemID, IsAvailable: it.Quantity <= 2, AvailableStock: 2}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": out})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "", 0).CheckStockAvailability(context.Background(), []domain.StockQuery{
		{CartItemID: "a", Quantity: 1},
		{CartItemID: "b", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].IsAvailable)
	assert.False(t, res[1].IsAvailable)
}
