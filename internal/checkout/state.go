// Package checkout models cart and product-page state as immutable values
// advanced by reducers.
package checkout

import (
	"time"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/pricing"
)

type Item struct {
	Variant domain.Variant `json:"-"`
	Line    pricing.Line   `json:"line"`
}

// State is never mutated in place. Every reducer returns a copy with Version bumped
// and Totals recomputed.
type State struct {
	Version uint64 `json:"version"`
	Items   []Item `json:"items"`

	Region        domain.Region           `json:"region,omitempty"`
	Delivery      domain.DeliverySettings `json:"-"`
	WaiveShipping bool                    `json:"-"`
	Guest         bool                    `json:"guest"`

	CouponCode   string              `json:"coupon_code,omitempty"`
	Coupon       domain.CouponResult `json:"-"`
	Bundles      []domain.Bundle     `json:"-"`
	Referral     *domain.Referral    `json:"-"`
	ReferralAt   time.Time           `json:"-"`
	Loyalty      pricing.Redemption  `json:"loyalty"`
	ShippingCost float64             `json:"shipping_cost"`

	Totals pricing.Totals `json:"totals"`
}

func NewState(delivery domain.DeliverySettings, waiveShipping, guest bool) State {
	return State{Delivery: delivery, WaiveShipping: waiveShipping, Guest: guest}
}

func (s State) Lines() []pricing.Line {
	out := make([]pricing.Line, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Line
	}
	return out
}

func (s State) clone() State {
	c := s
	c.Items = append([]Item(nil), s.Items...)
	c.Bundles = append([]domain.Bundle(nil), s.Bundles...)
	return c
}

func (s State) find(sku string) int {
	for i, it := range s.Items {
		if it.Line.SKU == sku {
			return i
		}
	}
	return -1
}

// recompute derives shipping and totals from the rest of the state.
func (s State) recompute() (State, error) {
	lines := s.Lines()
	subtotal := pricing.Subtotal(lines)

	s.ShippingCost = 0
	if s.Region != "" && len(lines) > 0 {
		ship, err := pricing.ComputeDeliveryCharge(subtotal, s.Region, s.Delivery)
		if err != nil {
			return s, err
		}
		s.ShippingCost = ship
	}

	// a redemption only stands while it still covers the whole subtotal
	if s.Loyalty.Discount > 0 && s.Loyalty.Discount != subtotal {
		s.Loyalty = pricing.Redemption{}
	}

	d := pricing.Discounts{Loyalty: s.Loyalty.Discount}
	if s.CouponCode != "" {
		d.Coupon = pricing.ApplyCoupon(s.Coupon, subtotal)
	}
	d.Upsell, _ = pricing.BestBundleDiscount(s.Bundles, lines)
	d.Affiliate = pricing.AffiliateDiscount(s.Referral, subtotal, s.Guest, s.ReferralAt)

	s.Totals = pricing.Finalize(subtotal, s.ShippingCost, d, s.WaiveShipping)
	return s, nil
}
