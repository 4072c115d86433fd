// Package orderapi forwards orders and stock checks to a remote order service.
package orderapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

const SignatureHeader = "X-Storefront-Signature"

type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

type orderItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
}

type orderReq struct {
	ID         uuid.UUID   `json:"id"`
	Number     string      `json:"order_number,omitempty"`
	CustomerID *uuid.UUID  `json:"customer_id,omitempty"`
	Guest      bool        `json:"is_guest"`
	Customer   customer    `json:"customer"`
	Items      []orderItem `json:"items"`
	Pricing    pricingInfo `json:"pricing"`
	Notes      string      `json:"notes,omitempty"`
}

type customer struct {
	Name       string        `json:"name"`
	Email      string        `json:"email,omitempty"`
	Phone      string        `json:"phone"`
	Address    string        `json:"address"`
	DistrictID int           `json:"district_id"`
	Region     domain.Region `json:"delivery_region"`
}

type pricingInfo struct {
	Subtotal          float64 `json:"subtotal"`
	ShippingCost      float64 `json:"shipping_cost"`
	CouponCode        string  `json:"coupon_code,omitempty"`
	CouponDiscount    float64 `json:"coupon_discount"`
	UpsellDiscount    float64 `json:"upsell_discount"`
	ReferralCode      string  `json:"referral_code,omitempty"`
	AffiliateDiscount float64 `json:"affiliate_discount"`
	LoyaltyDiscount   float64 `json:"loyalty_discount"`
	CoinsRedeemed     int64   `json:"coins_redeemed"`
	Total             float64 `json:"total"`
}

type orderResp struct {
	ID     uuid.UUID          `json:"id"`
	Number string             `json:"order_number"`
	Status domain.OrderStatus `json:"status"`
	Total  float64            `json:"total"`
}

type errorResp struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SKU       string `json:"sku"`
	Available int    `json:"available"`
}

func (c *Client) CreateOrder(ctx context.Context, o *domain.Order) (domain.OrderReceipt, error) {
	if o == nil {
		return domain.OrderReceipt{}, errors.New("order is nil")
	}
	req := orderReq{
		ID:         o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Guest:      o.Guest,
		Customer: customer{
			Name: o.Name, Email: o.Email, Phone: o.Phone, Address: o.Address,
			DistrictID: o.DistrictID, Region: o.Region,
		},
		Pricing: pricingInfo{
			Subtotal:          o.Subtotal,
			ShippingCost:      o.ShippingCost,
			CouponCode:        o.CouponCode,
			CouponDiscount:    o.CouponDiscount,
			UpsellDiscount:    o.UpsellDiscount,
			ReferralCode:      o.ReferralCode,
			AffiliateDiscount: o.AffiliateDiscount,
			LoyaltyDiscount:   o.LoyaltyDiscount,
			CoinsRedeemed:     o.CoinsRedeemed,
			Total:             o.Total,
		},
		Notes: o.Notes,
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, orderItem{
			VariantID: it.VariantID, ProductID: it.ProductID, SKU: it.SKU, Title: it.Title,
			Size: it.Size, Color: it.Color, Quantity: it.Qty, UnitPrice: it.UnitPrice, LineTotal: it.LineTotal,
		})
	}

	var resp orderResp
	if err := c.post(ctx, "/orders", o.ID.String(), req, &resp); err != nil {
		return domain.OrderReceipt{}, err
	}
	if resp.ID == uuid.Nil {
		resp.ID = o.ID
	}
	if resp.Number == "" {
		resp.Number = o.Number
	}
	if resp.Status == "" {
		resp.Status = domain.OrderStatusPending
	}
	return domain.OrderReceipt{OrderID: resp.ID, Number: resp.Number, Status: resp.Status, Total: resp.Total}, nil
}

func (c *Client) CheckStockAvailability(ctx context.Context, items []domain.StockQuery) ([]domain.StockAvailability, error) {
	var resp struct {
		Items []domain.StockAvailability `json:"items"`
	}
	if err := c.post(ctx, "/stock/check", "", map[string]any{"items": items}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(c.secret, buf))
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order service %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		return decodeError(path, res.StatusCode, body)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// decodeError maps the service's error codes back onto the domain taxonomy.
func decodeError(path string, status int, body []byte) error {
	var e errorResp
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return fmt.Errorf("order service %s status %d: %s", path, status, strings.TrimSpace(string(body)))
	}
	switch e.Code {
	case "out_of_stock":
		return &domain.StockError{Kind: domain.ErrOutOfStock, SKU: e.SKU, Available: e.Available}
	case "insufficient_stock":
		return &domain.StockError{Kind: domain.ErrInsufficientStock, SKU: e.SKU, Available: e.Available}
	case "invalid_coupon":
		return &domain.CouponError{Reason: e.Message}
	case "insufficient_coins":
		return &domain.CoinsError{Reason: e.Message}
	case "validation_error":
		return &domain.ValidationError{Message: e.Message}
	}
	return fmt.Errorf("order service %s status %d: %s: %s", path, status, e.Code, e.Message)
}
