package domain

import (
	"context"

	"github.com/google/uuid"
)

type ProductFilter struct {
	Query    string
	Category string
	Page     int
	PageSize int
	Sort     string
}

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	SaveVariant(ctx context.Context, v *Variant) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	FindVariantBySKU(ctx context.Context, sku string) (*Product, *Variant, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error
}

type StockQuery struct {
	CartItemID string    `json:"cart_item_id"`
	VariantID  uuid.UUID `json:"variant_id"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
}

type StockAvailability struct {
	CartItemID     string `json:"cart_item_id"`
	IsAvailable    bool   `json:"is_available"`
	AvailableStock int    `json:"available_stock"`
	Reason         string `json:"reason,omitempty"`
}

type StockChecker interface {
	CheckStockAvailability(ctx context.Context, items []StockQuery) ([]StockAvailability, error)
}

type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code string, subtotal float64) (CouponResult, error)
	RecordUsage(ctx context.Context, code string) error
}

type LoyaltyService interface {
	GetLoyalty(ctx context.Context, userID uuid.UUID) (LoyaltyAccount, error)
	Redeem(ctx context.Context, userID uuid.UUID, coins int64) error
	// Refund gives back coins taken by Redeem for an order that was not created.
	Refund(ctx context.Context, userID uuid.UUID, coins int64) error
}

type AddressResolver interface {
	Divisions(ctx context.Context) ([]Division, error)
	Districts(ctx context.Context, divisionID int) ([]District, error)
	Upazilas(ctx context.Context, districtID int) ([]Upazila, error)
	Areas(ctx context.Context, upazilaID int) ([]Area, error)
	RegionForDistrict(ctx context.Context, districtID int) (Region, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, o *Order) (OrderReceipt, error)
}

type BundleRepo interface {
	ActiveBundles(ctx context.Context) ([]Bundle, error)
}

type ReferralRepo interface {
	FindByCode(ctx context.Context, code string) (*Referral, error)
}
