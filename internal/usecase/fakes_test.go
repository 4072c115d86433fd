package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

type memProducts struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func newMemProducts(ps ...*domain.Product) *memProducts {
	m := &memProducts{products: map[string]*domain.Product{}}
	for _, p := range ps {
		m.products[p.Slug] = p
	}
	return m
}

func (m *memProducts) Save(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.Slug] = p
	return nil
}

func (m *memProducts) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Variants = append([]domain.Variant(nil), p.Variants...)
	return &cp, nil
}

func (m *memProducts) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *memProducts) byID(id uuid.UUID) *domain.Product {
	for _, p := range m.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memProducts) SaveVariant(_ context.Context, v *domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(v.ProductID)
	if p == nil {
		return domain.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == v.ID {
			p.Variants[i] = *v
			return nil
		}
	}
	p.Variants = append(p.Variants, *v)
	return nil
}

func (m *memProducts) ListVariants(_ context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(productID)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return append([]domain.Variant(nil), p.Variants...), nil
}

func (m *memProducts) FindVariantBySKU(_ context.Context, sku string) (*domain.Product, *domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		for i := range p.Variants {
			if p.Variants[i].SKU == sku {
				v := p.Variants[i]
				return p, &v, nil
			}
		}
	}
	return nil, nil, domain.ErrNotFound
}

func (m *memProducts) DeleteVariant(_ context.Context, productID, variantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(productID)
	if p == nil {
		return domain.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			p.Variants = append(p.Variants[:i], p.Variants[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type stubStock struct {
	available map[string]int
}

func (s stubStock) CheckStockAvailability(_ context.Context, items []domain.StockQuery) ([]domain.StockAvailability, error) {
	out := make([]domain.StockAvailability, 0, len(items))
	for _, it := range items {
		n := s.available[it.SKU]
		out = append(out, domain.StockAvailability{CartItemID: it.CartItemID, IsAvailable: n >= it.Quantity, AvailableStock: n})
	}
	return out, nil
}

type stubCoupons struct {
	amounts map[string]float64
	used    []string
}

func (s *stubCoupons) ValidateCoupon(_ context.Context, code string, _ float64) (domain.CouponResult, error) {
	a, ok := s.amounts[code]
	if !ok {
		return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: "unknown"}
	}
	return domain.CouponResult{DiscountAmount: a}, nil
}

func (s *stubCoupons) RecordUsage(_ context.Context, code string) error {
	s.used = append(s.used, code)
	return nil
}

type stubLoyalty struct {
	coins    int64
	redeemed int64
	refunded int64
}

func (s *stubLoyalty) GetLoyalty(_ context.Context, id uuid.UUID) (domain.LoyaltyAccount, error) {
	return domain.LoyaltyAccount{UserID: id, Coins: s.coins, CoinValue: 1}, nil
}

func (s *stubLoyalty) Redeem(_ context.Context, _ uuid.UUID, coins int64) error {
	if coins > s.coins {
		return &domain.CoinsError{Required: coins, Available: s.coins}
	}
	s.coins -= coins
	s.redeemed += coins
	return nil
}

func (s *stubLoyalty) Refund(_ context.Context, _ uuid.UUID, coins int64) error {
	s.coins += coins
	s.refunded += coins
	return nil
}

type stubAddress struct {
	regions map[int]domain.Region
}

func (s stubAddress) Divisions(context.Context) ([]domain.Division, error) { return nil, nil }
func (s stubAddress) Districts(context.Context, int) ([]domain.District, error) { return nil, nil }
func (s stubAddress) Upazilas(context.Context, int) ([]domain.Upazila, error) { return nil, nil }
func (s stubAddress) Areas(context.Context, int) ([]domain.Area, error) { return nil, nil }
func (s stubAddress) RegionForDistrict(_ context.Context, id int) (domain.Region, error) {
	r, ok := s.regions[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return r, nil
}

type stubBundles []domain.Bundle

func (s stubBundles) ActiveBundles(context.Context) ([]domain.Bundle, error) { return s, nil }

type stubReferrals map[string]domain.Referral

func (s stubReferrals) FindByCode(_ context.Context, code string) (*domain.Referral, error) {
	r, ok := s[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

type failingOrders struct{ err error }

func (f failingOrders) CreateOrder(context.Context, *domain.Order) (domain.OrderReceipt, error) {
	return domain.OrderReceipt{}, f.err
}

type recordingOrders struct {
	orders []*domain.Order
}

func (r *recordingOrders) CreateOrder(_ context.Context, o *domain.Order) (domain.OrderReceipt, error) {
	r.orders = append(r.orders, o)
	return domain.OrderReceipt{OrderID: o.ID, Number: o.Number, Status: o.Status, Total: o.Total}, nil
}
