// Package pricing computes line totals, delivery charges, discounts and the payable total.
package pricing

import (
	"math"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title,omitempty"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
}

// Round2 rounds to cents, matching the decimal(12,2) columns.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeLine prices qty units of v. Stock is checked here and never clamped.
func ComputeLine(v domain.Variant, qty int) (Line, error) {
	if v.StockQuantity <= 0 {
		return Line{}, &domain.StockError{Kind: domain.ErrOutOfStock, SKU: v.SKU, Requested: qty, Available: 0}
	}
	if qty < 1 {
		return Line{}, domain.ErrInvalidQuantity
	}
	if qty > v.StockQuantity {
		return Line{}, &domain.StockError{Kind: domain.ErrInsufficientStock, SKU: v.SKU, Requested: qty, Available: v.StockQuantity}
	}
	o := v.Options()
	return Line{
		ProductID: v.ProductID,
		VariantID: v.ID,
		SKU:       v.SKU,
		Size:      deref(o.Size),
		Color:     deref(o.Color),
		Quantity:  qty,
		UnitPrice: v.CurrentPrice,
		LineTotal: Round2(v.CurrentPrice * float64(qty)),
	}, nil
}

func Subtotal(lines []Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.LineTotal
	}
	return Round2(total)
}

// ClampQuantity bounds a quantity input to [1, available] for display only.
func ClampQuantity(q, available int) int {
	if q > available {
		q = available
	}
	if q < 1 {
		q = 1
	}
	return q
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
