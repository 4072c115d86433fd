package checkout

import (
	"time"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/pricing"
)

// Action is one state transition. Reduce applies it.
type Action interface {
	apply(s State) (State, error)
}

// Reduce returns the next state. On error the input state is returned untouched.
func Reduce(s State, a Action) (State, error) {
	next, err := a.apply(s.clone())
	if err != nil {
		return s, err
	}
	next, err = next.recompute()
	if err != nil {
		return s, err
	}
	next.Version = s.Version + 1
	return next, nil
}

// AddLine adds Quantity units of Variant, merging with an existing line of the same SKU.
type AddLine struct {
	Variant  domain.Variant
	Title    string
	Quantity int
}

func (a AddLine) apply(s State) (State, error) {
	qty := a.Quantity
	i := s.find(a.Variant.SKU)
	if i >= 0 {
		qty += s.Items[i].Line.Quantity
	}
	line, err := pricing.ComputeLine(a.Variant, qty)
	if err != nil {
		return s, err
	}
	line.Title = a.Title
	if i >= 0 {
		s.Items[i] = Item{Variant: a.Variant, Line: line}
		return s, nil
	}
	s.Items = append(s.Items, Item{Variant: a.Variant, Line: line})
	return s, nil
}

type SetQuantity struct {
	SKU      string
	Quantity int
}

func (a SetQuantity) apply(s State) (State, error) {
	i := s.find(a.SKU)
	if i < 0 {
		return s, domain.ErrNotFound
	}
	if a.Quantity == 0 {
		return RemoveLine{SKU: a.SKU}.apply(s)
	}
	line, err := pricing.ComputeLine(s.Items[i].Variant, a.Quantity)
	if err != nil {
		return s, err
	}
	line.Title = s.Items[i].Line.Title
	s.Items[i].Line = line
	return s, nil
}

type RemoveLine struct {
	SKU string
}

func (a RemoveLine) apply(s State) (State, error) {
	i := s.find(a.SKU)
	if i < 0 {
		return s, domain.ErrNotFound
	}
	s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
	return s, nil
}

type SetRegion struct {
	Region domain.Region
}

func (a SetRegion) apply(s State) (State, error) {
	if !a.Region.Valid() {
		return s, domain.ErrUnknownRegion
	}
	s.Region = a.Region
	return s, nil
}

type SetDelivery struct {
	Settings domain.DeliverySettings
}

func (a SetDelivery) apply(s State) (State, error) {
	s.Delivery = a.Settings
	return s, nil
}

type ApplyCoupon struct {
	Code   string
	Result domain.CouponResult
}

func (a ApplyCoupon) apply(s State) (State, error) {
	if a.Code == "" {
		return s, &domain.CouponError{Reason: "code is required"}
	}
	s.CouponCode = a.Code
	s.Coupon = a.Result
	return s, nil
}

type ClearCoupon struct{}

func (ClearCoupon) apply(s State) (State, error) {
	s.CouponCode = ""
	s.Coupon = domain.CouponResult{}
	return s, nil
}

// SetUpsell replaces the bundles the upsell discount is computed from.
type SetUpsell struct {
	Bundles []domain.Bundle
}

func (a SetUpsell) apply(s State) (State, error) {
	s.Bundles = append([]domain.Bundle(nil), a.Bundles...)
	return s, nil
}

type SetAffiliate struct {
	Referral *domain.Referral
	At       time.Time
}

func (a SetAffiliate) apply(s State) (State, error) {
	s.Referral = a.Referral
	s.ReferralAt = a.At
	return s, nil
}

// ApplyLoyalty redeems coins against the current subtotal, all or nothing.
type ApplyLoyalty struct {
	Account  domain.LoyaltyAccount
	Settings domain.LoyaltySettings
}

func (a ApplyLoyalty) apply(s State) (State, error) {
	r, err := pricing.RedeemLoyalty(pricing.Subtotal(s.Lines()), a.Account, a.Settings)
	if err != nil {
		return s, err
	}
	s.Loyalty = r
	return s, nil
}

type ClearLoyalty struct{}

func (ClearLoyalty) apply(s State) (State, error) {
	s.Loyalty = pricing.Redemption{}
	return s, nil
}
