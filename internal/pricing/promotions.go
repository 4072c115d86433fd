package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

func rate(kind domain.CouponType, value, base float64) float64 {
	var amount float64
	switch kind {
	case domain.CouponPercentage:
		if value < 0 || value > 100 {
			return 0
		}
		amount = base * value / 100
	case domain.CouponFixed:
		amount = value
	default:
		return 0
	}
	if amount < 0 {
		return 0
	}
	if amount > base {
		amount = base
	}
	return Round2(amount)
}

// CouponAmount is the discount a coupon grants on subtotal, honouring MaxDiscount.
func CouponAmount(c domain.Coupon, subtotal float64) float64 {
	amount := rate(c.Type, c.Value, subtotal)
	if c.MaxDiscount > 0 && amount > c.MaxDiscount {
		amount = c.MaxDiscount
	}
	return amount
}

// ApplyCoupon takes the amount returned by the coupon collaborator and caps it at the subtotal.
func ApplyCoupon(res domain.CouponResult, subtotal float64) float64 {
	amount := res.DiscountAmount
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		amount = subtotal
	}
	return Round2(amount)
}

// BundleDiscount is granted only when every product of the bundle is in lines.
func BundleDiscount(b domain.Bundle, lines []Line) float64 {
	if !b.Active || len(b.Items) == 0 {
		return 0
	}
	totals := map[uuid.UUID]float64{}
	for _, l := range lines {
		totals[l.ProductID] += l.LineTotal
	}
	base := 0.0
	for _, it := range b.Items {
		t, ok := totals[it.ProductID]
		if !ok {
			return 0
		}
		base += t
	}
	return rate(b.DiscountType, b.Discount, base)
}

// BestBundleDiscount returns the largest single bundle discount; bundles do not stack.
func BestBundleDiscount(bundles []domain.Bundle, lines []Line) (float64, *domain.Bundle) {
	best := 0.0
	var chosen *domain.Bundle
	for i := range bundles {
		if d := BundleDiscount(bundles[i], lines); d > best {
			best = d
			chosen = &bundles[i]
		}
	}
	return best, chosen
}

// AffiliateDiscount applies to guest checkouts only, inside the referral window.
func AffiliateDiscount(ref *domain.Referral, subtotal float64, guest bool, now time.Time) float64 {
	if ref == nil || !guest || !ref.ActiveAt(now) {
		return 0
	}
	return rate(ref.DiscountType, ref.Discount, subtotal)
}
