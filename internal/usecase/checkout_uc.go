package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/checkout"
	"github.com/phenrril/storefront/internal/domain"
)

type CartItemInput struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type QuoteRequest struct {
	Items        []CartItemInput `json:"items"`
	DistrictID   int             `json:"district_id,omitempty"`
	Region       domain.Region   `json:"region,omitempty"`
	CouponCode   string          `json:"coupon_code,omitempty"`
	ReferralCode string          `json:"referral_code,omitempty"`
	CustomerID   *uuid.UUID      `json:"customer_id,omitempty"`
	UseCoins     bool            `json:"use_coins,omitempty"`
}

type PlaceOrderRequest struct {
	QuoteRequest
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// CheckoutUC prices carts and places orders. Stock, Coupons, Loyalty,
// Bundles and Referrals are optional; a nil collaborator skips its step.
type CheckoutUC struct {
	Products  domain.ProductRepo
	Stock     domain.StockChecker
	Coupons   domain.CouponValidator
	Loyalty   domain.LoyaltyService
	Address   domain.AddressResolver
	Bundles   domain.BundleRepo
	Referrals domain.ReferralRepo
	Orders    domain.OrderService

	Delivery       domain.DeliverySettings
	LoyaltyPolicy  domain.LoyaltySettings
	NewOrderNumber func() string
	Now            func() time.Time
}

func (uc *CheckoutUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

// Quote prices a cart. Every step goes through checkout.Reduce so the quote
// is built with the same rules as an interactive session.
func (uc *CheckoutUC) Quote(ctx context.Context, req QuoteRequest) (checkout.State, error) {
	if len(req.Items) == 0 {
		return checkout.State{}, domain.NewValidation("items", "cart is empty")
	}
	guest := req.CustomerID == nil
	s := checkout.NewState(uc.Delivery, uc.LoyaltyPolicy.WaiveShippingOnRedemption, guest)

	step := func(a checkout.Action) error {
		next, err := checkout.Reduce(s, a)
		if err != nil {
			return err
		}
		s = next
		return nil
	}

	for i, it := range req.Items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			return s, domain.NewValidation(fmt.Sprintf("items[%d].sku", i), "is required")
		}
		p, v, err := uc.Products.FindVariantBySKU(ctx, sku)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return s, fmt.Errorf("sku %s: %w", sku, domain.ErrNoMatchingVariant)
			}
			return s, err
		}
		if err := step(checkout.AddLine{Variant: *v, Title: p.Title, Quantity: it.Quantity}); err != nil {
			return s, err
		}
	}

	if err := uc.checkStock(ctx, s); err != nil {
		return s, err
	}

	region, err := uc.region(ctx, req)
	if err != nil {
		return s, err
	}
	if region != "" {
		if err := step(checkout.SetRegion{Region: region}); err != nil {
			return s, err
		}
	}

	if code := strings.TrimSpace(req.CouponCode); code != "" && uc.Coupons != nil {
		res, err := uc.Coupons.ValidateCoupon(ctx, code, s.Totals.Subtotal)
		if err != nil {
			return s, err
		}
		if err := step(checkout.ApplyCoupon{Code: code, Result: res}); err != nil {
			return s, err
		}
	}

	if uc.Bundles != nil {
		bundles, err := uc.Bundles.ActiveBundles(ctx)
		if err != nil {
			return s, err
		}
		if err := step(checkout.SetUpsell{Bundles: bundles}); err != nil {
			return s, err
		}
	}

	if code := strings.TrimSpace(req.ReferralCode); code != "" && guest && uc.Referrals != nil {
		ref, err := uc.Referrals.FindByCode(ctx, code)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Debug().Str("referral", code).Msg("unknown referral code ignored")
		case err != nil:
			return s, err
		default:
			if err := step(checkout.SetAffiliate{Referral: ref, At: uc.now()}); err != nil {
				return s, err
			}
		}
	}

	if req.UseCoins && req.CustomerID != nil && uc.Loyalty != nil {
		acct, err := uc.Loyalty.GetLoyalty(ctx, *req.CustomerID)
		if err != nil {
			return s, err
		}
		if err := step(checkout.ApplyLoyalty{Account: acct, Settings: uc.LoyaltyPolicy}); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (uc *CheckoutUC) region(ctx context.Context, req QuoteRequest) (domain.Region, error) {
	if req.DistrictID > 0 && uc.Address != nil {
		return uc.Address.RegionForDistrict(ctx, req.DistrictID)
	}
	if req.Region != "" && !req.Region.Valid() {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownRegion, req.Region)
	}
	return req.Region, nil
}

// checkStock asks the stock service again; catalog stock may be stale.
func (uc *CheckoutUC) checkStock(ctx context.Context, s checkout.State) error {
	if uc.Stock == nil {
		return nil
	}
	q := make([]domain.StockQuery, len(s.Items))
	for i, it := range s.Items {
		q[i] = domain.StockQuery{CartItemID: it.Line.SKU, VariantID: it.Line.VariantID, SKU: it.Line.SKU, Quantity: it.Line.Quantity}
	}
	res, err := uc.Stock.CheckStockAvailability(ctx, q)
	if err != nil {
		return err
	}
	for _, r := range res {
		if r.IsAvailable {
			continue
		}
		kind := domain.ErrInsufficientStock
		if r.AvailableStock <= 0 {
			kind = domain.ErrOutOfStock
		}
		requested := 0
		for _, it := range q {
			if it.CartItemID == r.CartItemID {
				requested = it.Quantity
			}
		}
		return &domain.StockError{Kind: kind, SKU: r.CartItemID, Requested: requested, Available: r.AvailableStock}
	}
	return nil
}

// PlaceOrder re-prices the cart against live stock, coupons and coins and
// hands the order to the order service.
func (uc *CheckoutUC) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.OrderReceipt, error) {
	if err := validateContact(req); err != nil {
		return domain.OrderReceipt{}, err
	}
	s, err := uc.Quote(ctx, req.QuoteRequest)
	if err != nil {
		return domain.OrderReceipt{}, err
	}
	if s.Region == "" {
		return domain.OrderReceipt{}, domain.NewValidation("district_id", "delivery area is required")
	}

	o := uc.buildOrder(req, s)

	if s.Loyalty.Coins > 0 {
		if err := uc.Loyalty.Redeem(ctx, *req.CustomerID, s.Loyalty.Coins); err != nil {
			return domain.OrderReceipt{}, err
		}
	}
	receipt, err := uc.Orders.CreateOrder(ctx, o)
	if err != nil {
		if s.Loyalty.Coins > 0 {
			uc.refundCoins(*req.CustomerID, s.Loyalty.Coins, err)
		}
		return domain.OrderReceipt{}, err
	}
	if s.Totals.Discounts.Coupon > 0 && uc.Coupons != nil {
		if err := uc.Coupons.RecordUsage(ctx, s.CouponCode); err != nil {
			log.Warn().Err(err).Str("coupon", s.CouponCode).Str("order", receipt.Number).Msg("coupon usage not recorded")
		}
	}
	log.Info().Str("order", receipt.Number).Float64("total", receipt.Total).Int("items", len(o.Items)).Msg("order placed")
	return receipt, nil
}

// refundCoins returns coins taken for an order that failed. It runs on its own
// context so a cancelled request still gets its coins back.
func (uc *CheckoutUC) refundCoins(customerID uuid.UUID, coins int64, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l := log.With().Str("customer", customerID.String()).Int64("coins", coins).AnErr("cause", cause).Logger()
	if err := uc.Loyalty.Refund(ctx, customerID, coins); err != nil {
		l.Error().Err(err).Msg("order failed and coins could not be refunded")
		return
	}
	l.Warn().Msg("order failed, coins refunded")
}

func (uc *CheckoutUC) buildOrder(req PlaceOrderRequest, s checkout.State) *domain.Order {
	o := &domain.Order{
		ID:                uuid.New(),
		Status:            domain.OrderStatusPending,
		CustomerID:        req.CustomerID,
		Guest:             s.Guest,
		Email:             strings.TrimSpace(req.Email),
		Name:              strings.TrimSpace(req.Name),
		Phone:             strings.TrimSpace(req.Phone),
		Address:           strings.TrimSpace(req.Address),
		DistrictID:        req.DistrictID,
		Region:            s.Region,
		Notes:             strings.TrimSpace(req.Notes),
		Subtotal:          s.Totals.Subtotal,
		ShippingCost:      s.Totals.ShippingCost,
		CouponCode:        s.CouponCode,
		CouponDiscount:    s.Totals.Discounts.Coupon,
		UpsellDiscount:    s.Totals.Discounts.Upsell,
		AffiliateDiscount: s.Totals.Discounts.Affiliate,
		LoyaltyDiscount:   s.Totals.Discounts.Loyalty,
		CoinsRedeemed:     s.Loyalty.Coins,
		Total:             s.Totals.Total,
	}
	if s.Totals.Discounts.Affiliate > 0 {
		o.ReferralCode = strings.TrimSpace(req.ReferralCode)
	}
	if uc.NewOrderNumber != nil {
		o.Number = uc.NewOrderNumber()
	}
	for _, it := range s.Items {
		l := it.Line
		item := domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Title:     l.Title,
			SKU:       l.SKU,
			Size:      l.Size,
			Color:     l.Color,
			Qty:       l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
		o.Items = append(o.Items, item)
	}
	return o
}

func validateContact(req PlaceOrderRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "is required"
	}
	if strings.TrimSpace(req.Phone) == "" {
		fields["phone"] = "is required"
	}
	if strings.TrimSpace(req.Address) == "" {
		fields["address"] = "is required"
	}
	if e := strings.TrimSpace(req.Email); e != "" && !strings.Contains(e, "@") {
		fields["email"] = "is invalid"
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: "invalid contact details", Fields: fields}
}
