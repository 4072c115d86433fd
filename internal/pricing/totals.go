package pricing

// Discounts are amounts each computed against the original subtotal. They add
// up, they never compound.
type Discounts struct {
	Coupon    float64 `json:"coupon"`
	Upsell    float64 `json:"upsell"`
	Affiliate float64 `json:"affiliate"`
	Loyalty   float64 `json:"loyalty"`
}

func (d Discounts) Sum() float64 {
	return d.Coupon + d.Upsell + d.Affiliate + d.Loyalty
}

type Totals struct {
	Subtotal      float64   `json:"subtotal"`
	ShippingCost  float64   `json:"shipping_cost"`
	Discounts     Discounts `json:"discounts"`
	DiscountTotal float64   `json:"discount_total"`
	Total         float64   `json:"total"`
}

// ComputeOrderTotal applies discounts in fixed precedence: coupon, upsell,
// affiliate, loyalty. A loyalty redemption voids the rest. Each amount is
// floored at 0 and trimmed to what is left of subtotal+shipping.
func ComputeOrderTotal(subtotal, shippingCost float64, d Discounts) Totals {
	if subtotal < 0 {
		subtotal = 0
	}
	if shippingCost < 0 {
		shippingCost = 0
	}
	if d.Loyalty > 0 {
		d = Discounts{Loyalty: d.Loyalty}
	}
	headroom := subtotal + shippingCost
	take := func(amount float64) float64 {
		if amount < 0 {
			amount = 0
		}
		if amount > headroom {
			amount = headroom
		}
		headroom -= amount
		return Round2(amount)
	}
	applied := Discounts{}
	applied.Coupon = take(d.Coupon)
	applied.Upsell = take(d.Upsell)
	applied.Affiliate = take(d.Affiliate)
	applied.Loyalty = take(d.Loyalty)

	sum := Round2(applied.Sum())
	total := Round2(subtotal + shippingCost - sum)
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal:      Round2(subtotal),
		ShippingCost:  Round2(shippingCost),
		Discounts:     applied,
		DiscountTotal: sum,
		Total:         total,
	}
}

// Finalize is ComputeOrderTotal with the loyalty shipping policy applied.
func Finalize(subtotal, shippingCost float64, d Discounts, waiveShippingOnRedemption bool) Totals {
	if d.Loyalty > 0 && waiveShippingOnRedemption {
		shippingCost = 0
	}
	return ComputeOrderTotal(subtotal, shippingCost, d)
}
